package endpoints

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/prompts"
)

// PromptsListResponse contains all built-in prompts.
type PromptsListResponse struct {
	Prompts []prompts.EmbeddedPrompt `json:"prompts" yaml:"prompts"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

func (e *ListPromptsEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/prompts", e.handler
}

// handler godoc
//
//	@Summary		List all prompts
//	@Description	Get the built-in prompt templates with their variables and hashes
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptsListResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(c *gin.Context) {
	c.JSON(http.StatusOK, PromptsListResponse{Prompts: prompts.All()})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(cmd.Context(), "/api/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/:key.
type GetPromptEndpoint struct{}

func (e *GetPromptEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/prompts/:key", e.handler
}

// handler godoc
//
//	@Summary		Get a prompt
//	@Description	Get a built-in prompt template by key
//	@Tags			prompts
//	@Produce		json
//	@Param			key	path		string	true	"Prompt key (e.g., analysis.chapter)"
//	@Success		200	{object}	prompts.EmbeddedPrompt
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/prompts/{key} [get]
func (e *GetPromptEndpoint) handler(c *gin.Context) {
	key := c.Param("key")
	p, ok := prompts.Get(key)
	if !ok {
		writeError(c, http.StatusNotFound, "prompt not found: "+key)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <key>",
		Short: "Get a prompt by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp prompts.EmbeddedPrompt
			if err := client.Get(cmd.Context(), "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
