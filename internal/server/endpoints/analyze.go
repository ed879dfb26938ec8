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
)

// AnalyzeNovelRequest selects chapters for a batch. Empty means every
// chapter without an analysis.
type AnalyzeNovelRequest struct {
	ChapterIDs []int64 `json:"chapter_ids,omitempty"`
}

// AnalyzeNovelEndpoint handles POST /api/novels/:id/analyze.
// The batch runs in the background; progress is pushed over /ws/progress.
type AnalyzeNovelEndpoint struct {
	batch *batchSlot
}

func (e *AnalyzeNovelEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodPost, "/api/novels/:id/analyze", e.handler
}

// handler godoc
//
//	@Summary		Start batch analysis
//	@Description	Analyze un-analyzed (or selected) chapters with bounded concurrency
//	@Tags			novels
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Novel ID"
//	@Param			request	body		AnalyzeNovelRequest	false	"Optional chapter selection"
//	@Success		202		{object}	TaskResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/novels/{id}/analyze [post]
func (e *AnalyzeNovelEndpoint) handler(c *gin.Context) {
	novelID := c.Param("id")
	var req AnalyzeNovelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ctx := c.Request.Context()
	st := svcctx.StoreFrom(ctx)
	sched := svcctx.SchedulerFrom(ctx)
	if st == nil || sched == nil {
		writeError(c, http.StatusServiceUnavailable, "scheduler not initialized")
		return
	}
	if _, err := st.GetNovel(ctx, novelID); err != nil {
		writeErr(c, err)
		return
	}
	if holder, ok := e.batch.start(novelID); !ok {
		if holder == novelID {
			writeError(c, http.StatusConflict, "analysis already running for this novel")
		} else {
			writeError(c, http.StatusConflict, fmt.Sprintf("analysis running for novel %s", holder))
		}
		return
	}

	// The batch outlives the request but keeps its services.
	bg := context.WithoutCancel(ctx)
	logger := svcctx.LoggerFrom(ctx).With("novel_id", novelID)
	go func() {
		defer e.batch.done()

		var res *jobs.BatchResult
		var err error
		if len(req.ChapterIDs) > 0 {
			res, err = sched.AnalyzeSelected(bg, novelID, req.ChapterIDs)
		} else {
			res, err = sched.AnalyzeUnanalyzed(bg, novelID)
		}
		if err != nil {
			logger.Error("batch analysis failed", "error", err)
			return
		}
		logger.Info("batch analysis finished", "completed", res.Completed, "total", res.Total, "cancelled", res.Cancelled)
	}()

	c.JSON(http.StatusAccepted, TaskResponse{NovelID: novelID, Status: "started"})
}

func (e *AnalyzeNovelEndpoint) Command(getServerURL func() string) *cobra.Command {
	var ids []int64
	cmd := &cobra.Command{
		Use:   "analyze <novel-id>",
		Short: "Start a batch analysis on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TaskResponse
			if err := client.Post(cmd.Context(), "/api/novels/"+args[0]+"/analyze", AnalyzeNovelRequest{ChapterIDs: ids}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "chapters", nil, "Chapter ids to analyze (default: all un-analyzed)")
	return cmd
}

// CancelEndpoint handles POST /api/novels/:id/cancel. In-flight chapters
// finish; no new chapter starts. Only a batch of this novel is cancelled.
type CancelEndpoint struct{}

func (e *CancelEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodPost, "/api/novels/:id/cancel", e.handler
}

func (e *CancelEndpoint) handler(c *gin.Context) {
	novelID := c.Param("id")
	sched := svcctx.SchedulerFrom(c.Request.Context())
	if sched == nil {
		writeError(c, http.StatusServiceUnavailable, "scheduler not initialized")
		return
	}
	if !sched.CancelNovel(novelID) {
		c.JSON(http.StatusOK, TaskResponse{NovelID: novelID, Status: "idle"})
		return
	}
	c.JSON(http.StatusAccepted, TaskResponse{NovelID: novelID, Status: "cancelling"})
}

func (e *CancelEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <novel-id>",
		Short: "Cancel the running batch analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TaskResponse
			if err := client.Post(cmd.Context(), "/api/novels/"+args[0]+"/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", resp.NovelID, resp.Status)
			return nil
		},
	}
}
