package progress

import (
	"sync"

	"github.com/jackzampolin/novelparser/internal/types"
)

// Collector keeps every event it receives, in arrival order.
type Collector struct {
	mu     sync.Mutex
	events []types.ProgressEvent
	chunks []types.StreamChunk
}

func (c *Collector) Progress(ev types.ProgressEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *Collector) Chunk(ch types.StreamChunk) {
	c.mu.Lock()
	c.chunks = append(c.chunks, ch)
	c.mu.Unlock()
}

// Events returns a copy of the received progress events.
func (c *Collector) Events() []types.ProgressEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.ProgressEvent(nil), c.events...)
}

// Chunks returns a copy of the received stream chunks.
func (c *Collector) Chunks() []types.StreamChunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.StreamChunk(nil), c.chunks...)
}

// WithStatus returns the events carrying status.
func (c *Collector) WithStatus(status string) []types.ProgressEvent {
	var out []types.ProgressEvent
	for _, ev := range c.Events() {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out
}
