package endpoints

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/providers"
	"github.com/jackzampolin/novelparser/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/health", e.handler
}

func (e *HealthEndpoint) handler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server           string `json:"server" yaml:"server"`
	Model            string `json:"model" yaml:"model"`
	BaseURL          string `json:"base_url" yaml:"base_url"`
	MaxContextTokens int    `json:"max_context_tokens" yaml:"max_context_tokens"`
	Novels           int    `json:"novels" yaml:"novels"`
	ProgressClients  int    `json:"progress_clients" yaml:"progress_clients"`
	BatchCancelled   bool   `json:"batch_cancel_pending" yaml:"batch_cancel_pending"`

	RateLimit *providers.RateLimiterStatus `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// rateLimited is implemented by clients that pace their requests.
type rateLimited interface {
	RateLimiter() *providers.RateLimiter
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/status", e.handler
}

func (e *StatusEndpoint) handler(c *gin.Context) {
	ctx := c.Request.Context()
	resp := StatusResponse{Server: "running"}

	if runner := svcctx.RunnerFrom(ctx); runner != nil {
		cfg := runner.LLMConfig()
		resp.Model = cfg.Model
		resp.BaseURL = cfg.BaseURL
		resp.MaxContextTokens = cfg.MaxContextTokens
	}
	if st := svcctx.StoreFrom(ctx); st != nil {
		novels, err := st.ListNovels(ctx)
		if err != nil {
			writeErr(c, err)
			return
		}
		resp.Novels = len(novels)
	}
	if hub := svcctx.HubFrom(ctx); hub != nil {
		resp.ProgressClients = hub.ClientCount()
	}
	if caller := svcctx.CallerFrom(ctx); caller != nil {
		if rl, ok := caller.Client().(rateLimited); ok {
			status := rl.RateLimiter().Status()
			resp.RateLimit = &status
		}
	}
	if sched := svcctx.SchedulerFrom(ctx); sched != nil {
		resp.BatchCancelled = sched.CancelFlag().Cancelled()
	}

	c.JSON(http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
