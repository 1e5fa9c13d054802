package server

import (
	"bufio"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/fleet/internal/events"
)

func TestSSEHub_BroadcastAndReceive(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	hub.broadcast(events.TopicExportCompleted, []byte(`{"id":"exp-1"}`))

	select {
	case evt := <-client.ch:
		if evt.ID != 1 || evt.Topic != events.TopicExportCompleted || string(evt.Data) != `{"id":"exp-1"}` {
			t.Fatalf("got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSSEHub_TopicFiltering(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe([]string{"fleet.export.failed"})
	defer hub.unsubscribe(client)

	hub.broadcast(events.TopicExportCompleted, []byte(`{}`))
	hub.broadcast(events.TopicExportFailed, []byte(`{}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != events.TopicExportFailed {
			t.Fatalf("got topic %q", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	select {
	case evt := <-client.ch:
		t.Fatalf("unexpected event %q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe(nil)
	hub.unsubscribe(client)

	hub.broadcast(events.TopicExportCompleted, []byte(`{}`))

	select {
	case <-client.ch:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_Since(t *testing.T) {
	hub := newSSEHub()
	if got := hub.since(0); len(got) != 0 {
		t.Fatalf("empty hub returned %d events", len(got))
	}
	for range 5 {
		hub.broadcast(events.TopicExportCompleted, []byte(`{}`))
	}
	got := hub.since(2)
	if len(got) != 3 || got[0].ID != 3 || got[2].ID != 5 {
		t.Fatalf("since(2) = %+v", got)
	}
}

func TestSSEHub_HistoryIsBounded(t *testing.T) {
	hub := newSSEHub()
	for range sseReplaySize + 10 {
		hub.broadcast(events.TopicExportCompleted, []byte(`{}`))
	}
	got := hub.since(0)
	if len(got) != sseReplaySize {
		t.Fatalf("history = %d events, want %d", len(got), sseReplaySize)
	}
	if got[0].ID != 11 {
		t.Fatalf("oldest retained id = %d, want 11", got[0].ID)
	}
}

func TestMatchTopicPattern(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"fleet.export.completed", "fleet.export.completed", true},
		{"fleet.export.completed", "fleet.export.failed", false},
		{"fleet.export.*", "fleet.export.failed", true},
		{"fleet.*", "fleet.export.failed", false},
		{"fleet.>", "fleet.export.failed", true},
		{"fleet.>", "fleet", false},
		{"fleet.>", "other.export.failed", false},
		{"*.*.*", "fleet.export", false},
	} {
		if got := matchTopicPattern(tc.pattern, tc.topic); got != tc.want {
			t.Errorf("matchTopicPattern(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
		}
	}
}

// streamFor runs the stream handler until the returned stop function is
// called, then returns what was written.
func streamFor(t *testing.T, srv *Server, path, lastEventID string) func() string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", path, nil).WithContext(ctx)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.NewHTTPHandler().ServeHTTP(rec, req)
	}()
	// Give the handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	return func() string {
		time.Sleep(50 * time.Millisecond)
		cancel()
		<-done
		if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("Content-Type = %q", ct)
		}
		return rec.Body.String()
	}
}

func TestHandleEventStream(t *testing.T) {
	srv, _ := newTestServer(t)
	stop := streamFor(t, srv, "/v1/events/stream", "")
	srv.sseHub.broadcast(events.TopicExportCompleted, []byte(`{"id":"exp-sse"}`))
	body := stop()

	scanner := bufio.NewScanner(strings.NewReader(body))
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}
	if id != "1" || event != events.TopicExportCompleted || data != `{"id":"exp-sse"}` {
		t.Fatalf("got id=%q event=%q data=%q\n%s", id, event, data, body)
	}
}

func TestHandleEventStream_TopicFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	stop := streamFor(t, srv, "/v1/events/stream?topics=fleet.export.failed", "")
	srv.sseHub.broadcast(events.TopicExportCompleted, []byte(`{}`))
	srv.sseHub.broadcast(events.TopicExportFailed, []byte(`{}`))
	body := stop()

	if strings.Contains(body, "event:"+events.TopicExportCompleted) {
		t.Fatalf("completed event should be filtered:\n%s", body)
	}
	if !strings.Contains(body, "event:"+events.TopicExportFailed) {
		t.Fatalf("missing failed event:\n%s", body)
	}
}

func TestHandleEventStream_LastEventID(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.sseHub.broadcast(events.TopicExportCompleted, []byte(`{"n":1}`))
	srv.sseHub.broadcast(events.TopicExportCompleted, []byte(`{"n":2}`))
	srv.sseHub.broadcast(events.TopicExportCompleted, []byte(`{"n":3}`))

	body := streamFor(t, srv, "/v1/events/stream", "1")()
	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("event 1 should not be replayed:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) || !strings.Contains(body, `data:{"n":3}`) {
		t.Fatalf("events 2 and 3 should be replayed:\n%s", body)
	}
}
