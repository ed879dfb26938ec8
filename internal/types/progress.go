package types

// Progress status tags.
const (
	StatusAnalyzing        = "analyzing"
	StatusAnalyzingSegment = "analyzing_segment"
	StatusMergingSegments  = "merging_segments"
	StatusBatchAnalyzing   = "batch_analyzing"
	StatusChapterDone      = "chapter_done"
	StatusError            = "error"
	StatusBatchCancelled   = "batch_cancelled"
	StatusBatchDone        = "batch_done"
	StatusSummarizing      = "summarizing"
	StatusDone             = "done"
	StatusStreaming        = "streaming"
)

// ProgressEvent is emitted to a presentation layer and never read back.
type ProgressEvent struct {
	NovelID   string `json:"novel_id"`
	ChapterID *int64 `json:"chapter_id,omitempty"`
	Status    string `json:"status"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Message   string `json:"message"`
}

// StreamChunk is an incremental piece of a streaming model response.
type StreamChunk struct {
	ChapterID   int64  `json:"chapter_id"`
	Chunk       string `json:"chunk"`
	FullContent string `json:"full_content"`
}

// ChapterRef returns a pointer to id for ProgressEvent.ChapterID.
func ChapterRef(id int64) *int64 {
	return &id
}
