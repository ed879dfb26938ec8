package endpoints

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/ingest"
	"github.com/jackzampolin/novelparser/internal/store"
	"github.com/jackzampolin/novelparser/internal/svcctx"
	"github.com/jackzampolin/novelparser/internal/types"
)

// ListNovelsResponse is the response for listing novels.
type ListNovelsResponse struct {
	Novels []types.NovelMeta `json:"novels" yaml:"novels"`
}

// ListNovelsEndpoint handles GET /api/novels.
type ListNovelsEndpoint struct{}

func (e *ListNovelsEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/novels", e.handler
}

// handler godoc
//
//	@Summary		List novels
//	@Description	List imported novels with chapter and analysis counts, newest first
//	@Tags			novels
//	@Produce		json
//	@Success		200	{object}	ListNovelsResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/novels [get]
func (e *ListNovelsEndpoint) handler(c *gin.Context) {
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	novels, err := st.ListNovels(c.Request.Context())
	if err != nil {
		writeErr(c, err)
		return
	}
	if novels == nil {
		novels = []types.NovelMeta{}
	}
	c.JSON(http.StatusOK, ListNovelsResponse{Novels: novels})
}

func (e *ListNovelsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "novels",
		Short: "List novels",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListNovelsResponse
			if err := client.Get(cmd.Context(), "/api/novels", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ChapterInput is one chapter of a CreateNovelRequest.
type ChapterInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateNovelRequest is the request body for importing a novel.
type CreateNovelRequest struct {
	Title      string         `json:"title"`
	Source     string         `json:"source,omitempty"`
	Dimensions []string       `json:"dimensions,omitempty"`
	Chapters   []ChapterInput `json:"chapters"`
}

// CreateNovelEndpoint handles POST /api/novels.
type CreateNovelEndpoint struct{}

func (e *CreateNovelEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodPost, "/api/novels", e.handler
}

func (e *CreateNovelEndpoint) handler(c *gin.Context) {
	var req CreateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(c, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Chapters) == 0 {
		writeError(c, http.StatusBadRequest, "at least one chapter is required")
		return
	}
	dims, err := parseDimensions(req.Dimensions)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	chapters := make([]store.NewChapter, len(req.Chapters))
	for i, ch := range req.Chapters {
		chapters[i] = store.NewChapter{Title: ch.Title, Content: ch.Content}
	}
	novel := &types.Novel{Title: req.Title, Source: req.Source, EnabledDimensions: dims}
	if err := st.CreateNovel(c.Request.Context(), novel, chapters); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, novel)
}

func (e *CreateNovelEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title string
	var dims []string
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import plain-text chapter files into the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapters, err := ingest.ReadFiles(args)
			if err != nil {
				return err
			}
			req := CreateNovelRequest{Title: title, Dimensions: dims}
			if req.Title == "" {
				req.Title = ingest.NovelTitle(args[0])
			}
			for _, ch := range chapters {
				req.Chapters = append(req.Chapters, ChapterInput{Title: ch.Title, Content: ch.Content})
			}

			client := api.NewClient(getServerURL())
			var novel types.Novel
			if err := client.Post(cmd.Context(), "/api/novels", req, &novel); err != nil {
				return err
			}
			return api.Output(novel)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Novel title (default: first file name)")
	cmd.Flags().StringSliceVar(&dims, "dimensions", nil, "Enabled dimensions (default: characters,plot,foreshadowing,writing_technique)")
	return cmd
}

// DeleteNovelEndpoint handles DELETE /api/novels/:id.
type DeleteNovelEndpoint struct{}

func (e *DeleteNovelEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodDelete, "/api/novels/:id", e.handler
}

func (e *DeleteNovelEndpoint) handler(c *gin.Context) {
	st := svcctx.StoreFrom(c.Request.Context())
	if st == nil {
		writeError(c, http.StatusServiceUnavailable, "store not initialized")
		return
	}
	if err := st.DeleteNovel(c.Request.Context(), c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (e *DeleteNovelEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <novel-id>",
		Short: "Delete a novel and all its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/novels/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

// DimensionsEndpoint handles GET /api/dimensions.
type DimensionsEndpoint struct{}

func (e *DimensionsEndpoint) Route() (string, string, gin.HandlerFunc) {
	return http.MethodGet, "/api/dimensions", e.handler
}

func (e *DimensionsEndpoint) handler(c *gin.Context) {
	c.JSON(http.StatusOK, types.DimensionInfos())
}

func (e *DimensionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "dimensions",
		Short: "List analysis dimensions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []types.DimensionInfo
			if err := client.Get(cmd.Context(), "/api/dimensions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// parseDimensions returns nil for an empty list so callers fall back to defaults.
func parseDimensions(raw []string) ([]types.AnalysisDimension, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dims := make([]types.AnalysisDimension, 0, len(raw))
	for _, s := range raw {
		d, err := types.ParseDimension(s)
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, nil
}
