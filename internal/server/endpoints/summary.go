package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/jobs"
	"github.com/jackzampolin/novelparser/internal/svcctx"
	"github.com/jackzampolin/novelparser/internal/types"
)

// StartSummaryEndpoint handles POST /api/novels/:id/summary.
// The reduction runs in the background and ends with a "done" progress event.
type StartSummaryEndpoint struct {
	tasks *inflight
}

func (e *StartSummaryEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodPost, "/api/novels/:id/summary", e.handler
}

// handler godoc
//
//	@Summary		Generate the book summary
//	@Description	Fold chapter analyses into group summaries, then one book summary
//	@Tags			novels
//	@Produce		json
//	@Param			id	path		string	true	"Novel ID"
//	@Success		202	{object}	TaskResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/api/novels/{id}/summary [post]
func (e *StartSummaryEndpoint) handler(c *gin.Context) {
	novelID := c.Param("id")
	ctx := c.Request.Context()
	st := svcctx.StoreFrom(ctx)
	reducer := svcctx.ReducerFrom(ctx)
	if st == nil || reducer == nil {
		writeError(c, http.StatusServiceUnavailable, "reducer not initialized")
		return
	}

	if _, err := st.GetNovel(ctx, novelID); err != nil {
		writeErr(c, err)
		return
	}
	analyzed, err := analyzedCount(ctx, st.ListChapterMetas, novelID)
	if err != nil {
		writeErr(c, err)
		return
	}
	if analyzed == 0 {
		writeErr(c, fmt.Errorf("summarize %s: %w", novelID, jobs.ErrNoAnalyzedChapters))
		return
	}
	if !e.tasks.start(novelID) {
		writeError(c, http.StatusConflict, "summary already running for this novel")
		return
	}

	bg := context.WithoutCancel(ctx)
	logger := svcctx.LoggerFrom(ctx).With("novel_id", novelID)
	go func() {
		defer e.tasks.done(novelID)
		if _, err := reducer.Summarize(bg, novelID); err != nil {
			logger.Error("summary failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, TaskResponse{NovelID: novelID, Status: "started"})
}

func (e *StartSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <novel-id>",
		Short: "Start the book summary on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TaskResponse
			if err := client.Post(cmd.Context(), "/api/novels/"+args[0]+"/summary", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSummaryEndpoint handles GET /api/novels/:id/summary.
type GetSummaryEndpoint struct{}

func (e *GetSummaryEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/novels/:id/summary", e.handler
}

func (e *GetSummaryEndpoint) handler(c *gin.Context) {
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	summary, err := st.LoadSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (e *GetSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <novel-id>",
		Short: "Get the stored book summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var summary types.NovelSummary
			if err := client.Get(cmd.Context(), "/api/novels/"+args[0]+"/summary", &summary); err != nil {
				return err
			}
			return api.Output(summary)
		},
	}
}

func analyzedCount(ctx context.Context, list func(context.Context, string) ([]types.ChapterMeta, error), novelID string) (int, error) {
	metas, err := list(ctx, novelID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range metas {
		if m.HasAnalysis {
			n++
		}
	}
	return n, nil
}

// SummaryPromptResponse is the manual full-book summary prompt.
type SummaryPromptResponse struct {
	NovelID string `json:"novel_id" yaml:"novel_id"`
	Prompt  string `json:"prompt" yaml:"prompt"`
}

// SummaryPromptEndpoint handles GET /api/novels/:id/summary/prompt.
type SummaryPromptEndpoint struct{}

func (e *SummaryPromptEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/novels/:id/summary/prompt", e.handler
}

func (e *SummaryPromptEndpoint) handler(c *gin.Context) {
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	novelID := c.Param("id")
	prompt, err := jobs.SummaryManualPrompt(c.Request.Context(), st, novelID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SummaryPromptResponse{NovelID: novelID, Prompt: prompt})
}

func (e *SummaryPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary-prompt <novel-id>",
		Short: "Render the manual full-book summary prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SummaryPromptResponse
			if err := client.Get(cmd.Context(), "/api/novels/"+args[0]+"/summary/prompt", &resp); err != nil {
				return err
			}
			fmt.Println(resp.Prompt)
			return nil
		},
	}
}
