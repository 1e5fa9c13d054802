package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alfredjeanlab/fleet/internal/events"
	"github.com/alfredjeanlab/fleet/internal/listing"
	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	return newTestServerWith(t, Options{})
}

func newTestServerWith(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	st := memory.Fixture()
	svc := listing.New(st, listing.Options{
		MaxPerPage: 50,
		Now:        func() time.Time { return memory.FixtureNow },
	})
	return New(svc, st, opts), st
}

// do sends a request through the full handler and returns the recorder.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return v
}

type pageBody struct {
	Data       []map[string]any `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	TotalPages int              `json:"totalPages"`
	Stats      []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	} `json:"stats"`
}

func pageIDs(p pageBody) []string {
	out := make([]string, len(p.Data))
	for i, r := range p.Data {
		out[i], _ = r["id"].(string)
	}
	return out
}

func TestHandleList_Equipment(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.NewHTTPHandler()

	rec := do(t, h, "GET", "/v1/equipment?account_ids=acc-1&status=active&sort=vendor_name:asc&page=1&perPage=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	page := decode[pageBody](t, rec)
	if diff := cmp.Diff([]string{"e2", "e4"}, pageIDs(page)); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if page.Total != 3 || page.Page != 1 || page.PerPage != 2 || page.TotalPages != 2 {
		t.Errorf("paging = %+v", page)
	}
	if len(page.Stats) != 4 {
		t.Errorf("stats = %+v, want 4 buckets", page.Stats)
	}
}

func TestHandleList_StatsDisabledAndColumns(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.NewHTTPHandler()

	rec := do(t, h, "GET", "/v1/equipment?account_ids=acc-1&stats=false&columns=unit_number,%20status&sort=unit_number:asc", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	page := decode[pageBody](t, rec)
	if len(page.Stats) != 0 {
		t.Errorf("stats = %+v, want none", page.Stats)
	}
	if page.Total != 5 {
		t.Errorf("total = %d, want 5", page.Total)
	}
	for _, r := range page.Data {
		for key := range r {
			switch key {
			case "id", "unit_number", "status":
			default:
				t.Errorf("unexpected column %q in %v", key, r)
			}
		}
	}
}

func TestHandleList_EmptyDataIsArray(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.NewHTTPHandler(), "GET", "/v1/equipment?account_ids=nobody", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty data array", rec.Body.String())
	}
}

func TestHandleList_Errors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		path   string
		fail   error
		status int
		errMsg string
	}{
		{
			name:   "missing account ids",
			path:   "/v1/equipment",
			status: http.StatusBadRequest,
		},
		{
			name:   "missing account ids on pm",
			path:   "/v1/pm?status=scheduled",
			status: http.StatusBadRequest,
			errMsg: "account_ids is required",
		},
		{
			name:   "store failure",
			path:   "/v1/pm?account_ids=acc-1",
			fail:   errors.New("connection reset"),
			status: http.StatusInternalServerError,
			errMsg: "failed to fetch pm",
		},
		{
			name:   "get missing",
			path:   "/v1/equipment/nope",
			status: http.StatusNotFound,
			errMsg: "not found",
		},
		{
			name:   "unknown route",
			path:   "/v1/trailers",
			status: http.StatusNotFound,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv, st := newTestServer(t)
			if tc.fail != nil {
				st.FailWith(tc.fail)
			}
			rec := do(t, srv.NewHTTPHandler(), "GET", tc.path, nil)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.errMsg != "" {
				body := decode[map[string]string](t, rec)
				if body["error"] != tc.errMsg {
					t.Errorf("error = %q, want %q", body["error"], tc.errMsg)
				}
			}
		})
	}
}

func TestHandleGet(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.NewHTTPHandler()

	for _, tc := range []struct {
		path string
		id   string
	}{
		{"/v1/equipment/e1", "e1"},
		{"/v1/pm/pm2", "pm2"},
		{"/v1/workorders/wo1", "wo1"},
	} {
		rec := do(t, h, "GET", tc.path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, body = %s", tc.path, rec.Code, rec.Body.String())
			continue
		}
		if got := decode[map[string]any](t, rec)["id"]; got != tc.id {
			t.Errorf("GET %s: id = %v, want %s", tc.path, got, tc.id)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	srv, st := newTestServerWith(t, Options{AuthToken: "secret"})
	h := srv.NewHTTPHandler()

	rec := do(t, h, "GET", "/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]string](t, rec)["status"]; got != "ok" {
		t.Errorf("status = %q, want ok", got)
	}

	st.FailWith(errors.New("db down"))
	rec = do(t, h, "GET", "/v1/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandler_RequiresToken(t *testing.T) {
	srv, _ := newTestServerWith(t, Options{AuthToken: "secret"})
	h := srv.NewHTTPHandler()

	rec := do(t, h, "GET", "/v1/equipment?account_ids=acc-1", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/v1/equipment?account_ids=acc-1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleExport_CSV(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.NewHTTPHandler(), "POST", "/v1/equipment/export", map[string]any{
		"format":  "csv",
		"columns": []string{"unit_number", "status"},
		"sort":    "unit_number:asc",
		"filters": map[string][]string{"account_ids": {"acc-1"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="equipment.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("X-Export-Rows"); got != "5" {
		t.Errorf("X-Export-Rows = %q, want 5", got)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := [][]string{
		{"Unit Number", "Status"},
		{"R-400", "active"},
		{"T-100", "active"},
		{"T-200", "active"},
		{"T-300", "inactive"},
		{"T-500", "in_shop"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv (-want +got):\n%s", diff)
	}
}

func TestHandleExport_LabeledColumns(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.NewHTTPHandler(), "POST", "/v1/workorders/export", map[string]any{
		"format": "csv",
		"columns": []any{
			map[string]string{"label": "WO", "field": "number"},
			"not_a_field",
			map[string]string{"field": "priority_range"},
		},
		"sort":    "number:asc",
		"filters": map[string][]string{"account_ids": {"acc-1"}, "number": {"WO-100"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := [][]string{
		{"WO", "Not A Field", "Priority Range"},
		{"WO-1001", "", "Jan 2 – Jan 5, 2024"},
		{"WO-1002", "", "Dec 30 – Jan 3, 2023"},
		{"WO-1003", "", ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv (-want +got):\n%s", diff)
	}
}

func TestHandleExport_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.NewHTTPHandler()

	for _, tc := range []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"bad json", "/v1/equipment/export", "not an object", http.StatusBadRequest},
		{"unknown listing", "/v1/trailers/export", map[string]any{"format": "csv"}, http.StatusNotFound},
		{"unknown format", "/v1/equipment/export", map[string]any{"format": "pdf"}, http.StatusBadRequest},
		{"column without field", "/v1/equipment/export", map[string]any{
			"format":  "csv",
			"columns": []map[string]string{{"label": "Nope"}},
			"filters": map[string][]string{"account_ids": {"acc-1"}},
		}, http.StatusBadRequest},
		{"missing account ids", "/v1/equipment/export", map[string]any{"format": "csv"}, http.StatusBadRequest},
		{"upload not configured", "/v1/equipment/export", map[string]any{
			"upload":  true,
			"filters": map[string][]string{"account_ids": {"acc-1"}},
		}, http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, "POST", tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

type memoryDestination struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (d *memoryDestination) Bucket() string { return "fleet-exports" }

func (d *memoryDestination) Upload(_ context.Context, key, _ string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.objects == nil {
		d.objects = make(map[string][]byte)
	}
	d.objects[key] = data
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestHandleExport_Upload(t *testing.T) {
	dest := &memoryDestination{}
	pub := &capturePublisher{}
	srv, _ := newTestServerWith(t, Options{
		Destination:  dest,
		ExportPrefix: "exports",
		Publisher:    pub,
	})
	stream := srv.sseHub.subscribe(nil)
	defer srv.sseHub.unsubscribe(stream)

	rec := do(t, srv.NewHTTPHandler(), "POST", "/v1/workorders/export", map[string]any{
		"format":  "xlsx",
		"upload":  true,
		"filters": map[string][]string{"account_ids": {"acc-1"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	ev := decode[model.ExportEvent](t, rec)
	if ev.Listing != listing.Workorders || ev.Format != "xlsx" || ev.Bucket != "fleet-exports" || ev.Rows != 3 {
		t.Errorf("event = %+v", ev)
	}
	if !strings.HasPrefix(ev.Key, "exports/exp-") || !strings.HasSuffix(ev.Key, ".xlsx") {
		t.Errorf("key = %q", ev.Key)
	}
	if len(dest.objects[ev.Key]) == 0 {
		t.Errorf("nothing uploaded at %q", ev.Key)
	}

	if diff := cmp.Diff([]string{events.TopicExportCompleted}, pub.topics); diff != "" {
		t.Errorf("published topics (-want +got):\n%s", diff)
	}
	select {
	case evt := <-stream.ch:
		if evt.Topic != events.TopicExportCompleted || !strings.Contains(string(evt.Data), ev.ID) {
			t.Errorf("stream event = %s %s", evt.Topic, evt.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no stream event after upload")
	}
}

func TestParseListRequest(t *testing.T) {
	req := parseListRequest(httptest.NewRequest("GET",
		"/v1/equipment?account_ids=acc-1&account_ids=acc-2&page=x&perPage=25&sort=unit_number:desc&stats=0&columns=a,,b", nil))

	if req.Page != 0 || req.PerPage != 25 || req.Sort != "unit_number:desc" || !req.SkipStats {
		t.Errorf("request = %+v", req)
	}
	if diff := cmp.Diff([]string{"a", "b"}, req.Columns); diff != "" {
		t.Errorf("columns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"acc-1", "acc-2"}, req.Filters.Values("account_ids")); diff != "" {
		t.Errorf("account_ids (-want +got):\n%s", diff)
	}
	for _, key := range []string{"page", "perPage", "sort", "stats", "columns"} {
		if req.Filters.Has(key) {
			t.Errorf("reserved param %q passed through as a filter", key)
		}
	}
}
