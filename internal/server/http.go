package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/fleet/internal/listing"
	"github.com/alfredjeanlab/fleet/internal/query"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When the server has an auth token, requests other than GET /v1/health must
// carry it as Authorization: Bearer <token>.
func (s *Server) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/equipment", s.handleList(listing.Equipment))
	mux.HandleFunc("GET /v1/equipment/{id}", s.handleGet(listing.Equipment))
	mux.HandleFunc("GET /v1/pm", s.handleList(listing.PM))
	mux.HandleFunc("GET /v1/pm/{id}", s.handleGet(listing.PM))
	mux.HandleFunc("GET /v1/workorders", s.handleList(listing.Workorders))
	mux.HandleFunc("GET /v1/workorders/{id}", s.handleGet(listing.Workorders))
	mux.HandleFunc("POST /v1/{listing}/export", s.handleExport)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return s.logRequests(AuthMiddleware(s.authToken, mux))
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleList handles GET /v1/{listing}.
func (s *Server) handleList(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.listings.List(r.Context(), name, parseListRequest(r))
		if err != nil {
			s.writeQueryError(w, err)
			return
		}
		// Ensure data is never null in JSON output.
		if page.Data == nil {
			page.Data = []query.Record{}
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// handleGet handles GET /v1/{listing}/{id}.
func (s *Server) handleGet(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.listings.Get(r.Context(), name, r.PathValue("id"))
		if err != nil {
			s.writeQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// Parameters with a fixed meaning; every other query parameter is a filter.
var reservedParams = map[string]bool{
	"page":    true,
	"perPage": true,
	"sort":    true,
	"stats":   true,
	"columns": true,
}

// parseListRequest reads page, perPage, sort, stats and columns; every other
// parameter is passed through as a filter. Non-numeric paging values fall
// back to the defaults.
func parseListRequest(r *http.Request) query.Request {
	q := r.URL.Query()
	req := query.Request{
		Filters: query.Filters{},
		Sort:    q.Get("sort"),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = n
	}
	if n, err := strconv.Atoi(q.Get("perPage")); err == nil {
		req.PerPage = n
	}
	if v, err := strconv.ParseBool(q.Get("stats")); err == nil && !v {
		req.SkipStats = true
	}
	if v := q.Get("columns"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				req.Columns = append(req.Columns, c)
			}
		}
	}
	for key, values := range q {
		if !reservedParams[key] {
			req.Filters.Add(key, values...)
		}
	}
	return req
}

// writeQueryError maps listing errors to status codes.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	var (
		inputErr query.InputError
		stageErr *query.StageError
	)
	switch {
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, inputErr.Error())
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, listing.ErrUnknownListing):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &stageErr):
		writeError(w, http.StatusInternalServerError, "failed to "+string(stageErr.Stage)+" "+stageErr.Listing)
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
