package progress

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jackzampolin/novelparser/internal/types"
)

func TestMultiFansOutInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	rec := func(name string) Sink {
		return Funcs{OnProgress: func(types.ProgressEvent) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}}
	}

	s := Multi(rec("a"), nil, rec("b"))
	s.Progress(types.ProgressEvent{Status: types.StatusAnalyzing})
	s.Chunk(types.StreamChunk{Chunk: "ignored"})

	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v, want [a b]", order)
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := types.StatusChapterDone
			if i%2 == 0 {
				status = types.StatusError
			}
			c.Progress(types.ProgressEvent{Status: status, Current: i})
		}(i)
	}
	wg.Wait()
	c.Chunk(types.StreamChunk{ChapterID: 1, Chunk: "x", FullContent: "x"})

	if got := len(c.Events()); got != 20 {
		t.Errorf("events = %d, want 20", got)
	}
	if got := len(c.WithStatus(types.StatusError)); got != 10 {
		t.Errorf("error events = %d, want 10", got)
	}
	if got := len(c.Chunks()); got != 1 {
		t.Errorf("chunks = %d, want 1", got)
	}
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s := NewLogSink(logger)

	s.Progress(types.ProgressEvent{Status: types.StatusAnalyzing, Message: "quiet"})
	s.Progress(types.ProgressEvent{Status: types.StatusError, Message: "loud", ChapterID: types.ChapterRef(7)})

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("debug event logged at warn level: %s", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "chapter_id=7") {
		t.Errorf("error event missing from log: %s", out)
	}
}

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	all := dialHub(t, srv, "")
	scoped := dialHub(t, srv, "?novel_id=n2")
	waitClients(t, hub, 2)

	hub.Progress(types.ProgressEvent{NovelID: "n1", Status: types.StatusBatchAnalyzing, Current: 1, Total: 3})
	hub.Progress(types.ProgressEvent{NovelID: "n2", Status: types.StatusBatchDone, Current: 3, Total: 3})
	hub.Chunk(types.StreamChunk{ChapterID: 4, Chunk: "ab", FullContent: "ab"})

	first := readMessage(t, all)
	if first["type"] != MessageProgress {
		t.Fatalf("type = %v, want progress", first["type"])
	}
	if data := first["data"].(map[string]any); data["novel_id"] != "n1" || data["status"] != types.StatusBatchAnalyzing {
		t.Errorf("unexpected first message: %v", first)
	}
	readMessage(t, all)
	if m := readMessage(t, all); m["type"] != MessageStream {
		t.Errorf("third message type = %v, want stream", m["type"])
	}

	// The scoped client skips n1.
	m := readMessage(t, scoped)
	if data := m["data"].(map[string]any); data["novel_id"] != "n2" {
		t.Errorf("scoped client got %v", m)
	}
	if m := readMessage(t, scoped); m["type"] != MessageStream {
		t.Errorf("scoped client second message = %v", m)
	}
}

func TestHubCloseDisconnects(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "")
	waitClients(t, hub, 1)

	hub.Close()
	if hub.ClientCount() != 0 {
		t.Errorf("clients after close = %d", hub.ClientCount())
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read error after hub close")
	}

	// Broadcasting after close is a no-op.
	hub.Progress(types.ProgressEvent{Status: types.StatusDone})
}
