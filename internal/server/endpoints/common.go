package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/analysis"
	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/jobs"
	"github.com/jackzampolin/novelparser/internal/providers"
	"github.com/jackzampolin/novelparser/internal/store"
	"github.com/jackzampolin/novelparser/internal/tokens"
)

// ErrorResponse is a standard error response.
type ErrorResponse = api.ErrorResponse

// TaskResponse acknowledges a background task.
type TaskResponse struct {
	NovelID string `json:"novel_id" yaml:"novel_id"`
	Status  string `json:"status" yaml:"status"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func writeErr(c *gin.Context, err error) {
	writeError(c, statusFor(err), err.Error())
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var budget *tokens.BudgetError
	var parse *analysis.ParseError
	var transport *providers.TransportError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrNoAnalyzedChapters), errors.As(err, &budget), errors.As(err, &parse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, jobs.ErrBatchRunning):
		return http.StatusConflict
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func chapterIDParam(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("invalid chapter id %q", raw))
		return 0, false
	}
	return id, true
}

// inflight tracks background tasks by novel so one novel never runs two of
// the same kind at once.
type inflight struct {
	running sync.Map
}

func (f *inflight) start(novelID string) bool {
	_, busy := f.running.LoadOrStore(novelID, struct{}{})
	return !busy
}

func (f *inflight) done(novelID string) {
	f.running.Delete(novelID)
}

// batchSlot admits one batch at a time across all novels, matching the
// scheduler, so a second start is refused before it is queued.
type batchSlot struct {
	mu      sync.Mutex
	novelID string
}

// start claims the slot for novelID. When it is taken it returns the
// holder and false.
func (b *batchSlot) start(novelID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.novelID != "" {
		return b.novelID, false
	}
	b.novelID = novelID
	return "", true
}

func (b *batchSlot) done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.novelID = ""
}

// readInput reads a file argument, with "-" meaning stdin.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
