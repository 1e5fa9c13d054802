package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/fleet/internal/export"
	"github.com/alfredjeanlab/fleet/internal/query"
)

type exportInput struct {
	export.Request
	// Upload stores the file in the export bucket instead of returning it.
	Upload bool `json:"upload"`
}

// handleExport handles POST /v1/{listing}/export.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("listing")

	var in exportInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.Filters == nil {
		in.Filters = query.Filters{}
	}

	if in.Upload {
		if !s.exporter.CanUpload() {
			writeError(w, http.StatusBadRequest, "export upload is not configured")
			return
		}
		ev, err := s.exporter.Upload(r.Context(), name, in.Request)
		if err != nil {
			s.writeQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ev)
		return
	}

	// Render fully before writing so failures still get an error status.
	var buf bytes.Buffer
	rows, err := s.exporter.Render(r.Context(), name, in.Request, &buf)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	format, _ := export.ParseFormat(in.Format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+format.Ext()))
	w.Header().Set("X-Export-Rows", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
