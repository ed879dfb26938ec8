package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/jobs"
	"github.com/jackzampolin/novelparser/internal/store"
	"github.com/jackzampolin/novelparser/internal/svcctx"
	"github.com/jackzampolin/novelparser/internal/types"
)

// ListChaptersResponse is the response for listing a novel's chapters.
type ListChaptersResponse struct {
	NovelID  string              `json:"novel_id" yaml:"novel_id"`
	Chapters []types.ChapterMeta `json:"chapters" yaml:"chapters"`
}

// ListChaptersEndpoint handles GET /api/novels/:id/chapters.
type ListChaptersEndpoint struct{}

func (e *ListChaptersEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/novels/:id/chapters", e.handler
}

// handler godoc
//
//	@Summary		List chapters
//	@Description	List a novel's chapters in index order with analysis state and token estimate
//	@Tags			chapters
//	@Produce		json
//	@Param			id	path		string	true	"Novel ID"
//	@Success		200	{object}	ListChaptersResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/novels/{id}/chapters [get]
func (e *ListChaptersEndpoint) handler(c *gin.Context) {
	ctx := c.Request.Context()
	st := svcctx.StoreFrom(ctx)
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	novelID := c.Param("id")
	if _, err := st.GetNovel(ctx, novelID); err != nil {
		writeErr(c, err)
		return
	}
	metas, err := st.ListChapterMetas(ctx, novelID)
	if err != nil {
		writeErr(c, err)
		return
	}
	if metas == nil {
		metas = []types.ChapterMeta{}
	}
	c.JSON(http.StatusOK, ListChaptersResponse{NovelID: novelID, Chapters: metas})
}

func (e *ListChaptersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <novel-id>",
		Short: "List a novel's chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListChaptersResponse
			if err := client.Get(cmd.Context(), "/api/novels/"+args[0]+"/chapters", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetChapterEndpoint handles GET /api/chapters/:id.
type GetChapterEndpoint struct{}

func (e *GetChapterEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/chapters/:id", e.handler
}

func (e *GetChapterEndpoint) handler(c *gin.Context) {
	id, ok := chapterIDParam(c)
	if !ok {
		return
	}
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	ch, err := st.LoadChapter(c.Request.Context(), id)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (e *GetChapterEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chapter <chapter-id>",
		Short: "Get a chapter with its analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var ch types.Chapter
			if err := client.Get(cmd.Context(), "/api/chapters/"+args[0], &ch); err != nil {
				return err
			}
			return api.Output(ch)
		},
	}
}

// AnalyzeChapterRequest is the optional body for analyzing one chapter.
type AnalyzeChapterRequest struct {
	Dimensions []string `json:"dimensions,omitempty"`
}

// AnalyzeChapterEndpoint handles POST /api/chapters/:id/analyze.
// The request waits for the model; progress is also pushed over /ws/progress.
type AnalyzeChapterEndpoint struct{}

func (e *AnalyzeChapterEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodPost, "/api/chapters/:id/analyze", e.handler
}

// handler godoc
//
//	@Summary		Analyze a chapter
//	@Description	Analyze one chapter (segmenting it when it exceeds the model budget) and store the result
//	@Tags			chapters
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Chapter ID"
//	@Param			request	body		AnalyzeChapterRequest	false	"Dimensions (default: the novel's enabled dimensions)"
//	@Success		200		{object}	types.ChapterAnalysis
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/chapters/{id}/analyze [post]
func (e *AnalyzeChapterEndpoint) handler(c *gin.Context) {
	id, ok := chapterIDParam(c)
	if !ok {
		return
	}
	var req AnalyzeChapterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	dims, err := parseDimensions(req.Dimensions)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	st := svcctx.StoreFrom(ctx)
	sched := svcctx.SchedulerFrom(ctx)
	if st == nil || sched == nil {
		writeError(c, http.StatusServiceUnavailable, "scheduler not initialized")
		return
	}
	if dims == nil {
		if dims, err = novelDimensions(ctx, st, id); err != nil {
			writeErr(c, err)
			return
		}
	}

	result, err := sched.AnalyzeChapter(ctx, id, dims)
	if err != nil {
		svcctx.LoggerFrom(ctx).Warn("chapter analysis failed", "chapter_id", id, "error", err)
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (e *AnalyzeChapterEndpoint) Command(getServerURL func() string) *cobra.Command {
	var dims []string
	cmd := &cobra.Command{
		Use:   "analyze-chapter <chapter-id>",
		Short: "Analyze one chapter on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("invalid chapter id %q", args[0])
			}
			client := api.NewClient(getServerURL())
			var result types.ChapterAnalysis
			if err := client.Post(cmd.Context(), "/api/chapters/"+args[0]+"/analyze", AnalyzeChapterRequest{Dimensions: dims}, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
	cmd.Flags().StringSliceVar(&dims, "dimensions", nil, "Dimensions to analyze (default: the novel's enabled dimensions)")
	return cmd
}

// ChapterPromptEndpoint handles GET /api/chapters/:id/prompt. It renders the
// whole-chapter prompt for pasting into a chat UI; no model call is made.
type ChapterPromptEndpoint struct{}

func (e *ChapterPromptEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/chapters/:id/prompt", e.handler
}

func (e *ChapterPromptEndpoint) handler(c *gin.Context) {
	id, ok := chapterIDParam(c)
	if !ok {
		return
	}
	dims, err := parseDimensions(c.QueryArray("dimension"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	st := svcctx.StoreFrom(ctx)
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	if dims == nil {
		if dims, err = novelDimensions(ctx, st, id); err != nil {
			writeErr(c, err)
			return
		}
	}
	mp, err := jobs.ChapterManualPrompt(ctx, st, id, dims)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, mp)
}

func (e *ChapterPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "chapter-prompt <chapter-id>",
		Short: "Render a chapter's manual analysis prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var mp jobs.ManualPrompt
			if err := client.Get(cmd.Context(), "/api/chapters/"+args[0]+"/prompt", &mp); err != nil {
				return err
			}
			return api.Output(mp)
		},
	}
}

// ManualResultRequest carries a model answer produced outside the server.
type ManualResultRequest struct {
	Raw string `json:"raw"`
}

// ManualResultEndpoint handles POST /api/chapters/:id/manual.
type ManualResultEndpoint struct{}

func (e *ManualResultEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodPost, "/api/chapters/:id/manual", e.handler
}

func (e *ManualResultEndpoint) handler(c *gin.Context) {
	id, ok := chapterIDParam(c)
	if !ok {
		return
	}
	var req ManualResultRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Raw == "" {
		writeError(c, http.StatusBadRequest, "raw is required")
		return
	}
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	result, err := jobs.ApplyManualResult(c.Request.Context(), st, id, req.Raw)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (e *ManualResultEndpoint) Command(getServerURL func() string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "parse-manual <chapter-id>",
		Short: "Store a pasted model answer as the chapter's analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var result types.ChapterAnalysis
			if err := client.Post(cmd.Context(), "/api/chapters/"+args[0]+"/manual", ManualResultRequest{Raw: raw}, &result); err != nil {
				return err
			}
			return api.Output(result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "File holding the model answer (- for stdin)")
	return cmd
}

func novelDimensions(ctx context.Context, st *store.Store, chapterID int64) ([]types.AnalysisDimension, error) {
	ch, err := st.LoadChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	novel, err := st.GetNovel(ctx, ch.NovelID)
	if err != nil {
		return nil, err
	}
	return novel.EnabledDimensions, nil
}
