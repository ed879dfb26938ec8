package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/llmcall"
	"github.com/jackzampolin/novelparser/internal/metrics"
	"github.com/jackzampolin/novelparser/internal/svcctx"
)

// LLMCallsResponse contains a list of LLM calls.
type LLMCallsResponse struct {
	Calls []*llmcall.Call `json:"calls" yaml:"calls"`
	Total int             `json:"total" yaml:"total"`
}

// ListLLMCallsEndpoint handles GET /api/llmcalls.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/llmcalls", e.handler
}

// handler godoc
//
//	@Summary		List LLM calls
//	@Description	Get model call history with optional filters, newest first
//	@Tags			llmcalls
//	@Produce		json
//	@Param			novel_id	query		string	false	"Filter by novel ID"
//	@Param			chapter_id	query		int		false	"Filter by chapter ID"
//	@Param			prompt_key	query		string	false	"Filter by prompt key"
//	@Param			success		query		bool	false	"Filter by success status (true or false)"
//	@Param			limit		query		int		false	"Max results (default 50)"
//	@Param			offset		query		int		false	"Result offset"
//	@Success		200			{object}	LLMCallsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/api/llmcalls [get]
func (e *ListLLMCallsEndpoint) handler(c *gin.Context) {
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	filter := llmcall.QueryFilter{
		NovelID:   c.Query("novel_id"),
		PromptKey: c.Query("prompt_key"),
	}
	if v := c.Query("chapter_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid chapter_id: %q must be an integer", v))
			return
		}
		filter.ChapterID = &id
	}
	if v := c.Query("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid success filter: %q must be true or false", v))
			return
		}
		filter.Success = &b
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q must be a non-negative integer", name, v))
				return
			}
			*dst = n
		}
	}

	calls, err := st.ListLLMCalls(c.Request.Context(), filter)
	if err != nil {
		writeErr(c, err)
		return
	}
	if calls == nil {
		calls = []*llmcall.Call{}
	}
	c.JSON(http.StatusOK, LLMCallsResponse{Calls: calls, Total: len(calls)})
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var novelID, promptKey string
	var limit int
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "llmcalls",
		Short: "List recorded model calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if novelID != "" {
				params.Set("novel_id", novelID)
			}
			if promptKey != "" {
				params.Set("prompt_key", promptKey)
			}
			if failedOnly {
				params.Set("success", "false")
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/llmcalls"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			client := api.NewClient(getServerURL())
			var resp LLMCallsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&novelID, "novel-id", "", "Filter by novel ID")
	cmd.Flags().StringVar(&promptKey, "prompt-key", "", "Filter by prompt key")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only failed calls")
	return cmd
}

// ModelsResponse lists model identifiers from the configured endpoint.
type ModelsResponse struct {
	Models []string `json:"models" yaml:"models"`
}

// ListModelsEndpoint handles GET /api/models.
type ListModelsEndpoint struct{}

func (e *ListModelsEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/models", e.handler
}

func (e *ListModelsEndpoint) handler(c *gin.Context) {
	caller := svcctx.CallerFrom(c.Request.Context())
	if caller == nil {
		writeError(c, http.StatusServiceUnavailable, "model caller not initialized")
		return
	}
	models, err := caller.Models(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsResponse{Models: models})
}

func (e *ListModelsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models offered by the server's endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ModelsResponse
			if err := client.Get(cmd.Context(), "/api/models", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// LLMCallStatsEndpoint handles GET /api/llmcalls/stats.
type LLMCallStatsEndpoint struct{}

func (e *LLMCallStatsEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/llmcalls/stats", e.handler
}

// handler godoc
//
//	@Summary		LLM call statistics
//	@Description	Token totals and latency of recorded model calls, broken down by prompt key and model
//	@Tags			llmcalls
//	@Produce		json
//	@Param			novel_id	query		string	false	"Filter by novel ID"
//	@Success		200			{object}	metrics.Report
//	@Failure		503			{object}	ErrorResponse
//	@Router			/api/llmcalls/stats [get]
func (e *LLMCallStatsEndpoint) handler(c *gin.Context) {
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	report, err := metrics.NewQuery(st).GetReport(c.Request.Context(), llmcall.QueryFilter{
		NovelID: c.Query("novel_id"),
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (e *LLMCallStatsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var novelID string
	cmd := &cobra.Command{
		Use:   "llmcall-stats",
		Short: "Show token and latency statistics of recorded model calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/llmcalls/stats"
			if novelID != "" {
				path += "?" + url.Values{"novel_id": {novelID}}.Encode()
			}
			client := api.NewClient(getServerURL())
			var resp metrics.Report
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&novelID, "novel-id", "", "Filter by novel ID")
	return cmd
}
