// Package client talks to the fleet HTTP/JSON API.
package client

import (
	"context"
	"io"

	"github.com/alfredjeanlab/fleet/internal/export"
	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
)

// FleetClient is what the CLI commands use to reach a fleet server.
type FleetClient interface {
	List(ctx context.Context, listing string, req *ListRequest) (*query.Page, error)
	Get(ctx context.Context, listing, id string) (query.Record, error)

	// Export writes the rendered file to w. Uploaded exports write nothing
	// and return the stored object in ExportResult.Upload.
	Export(ctx context.Context, listing string, req *ExportRequest, w io.Writer) (*ExportResult, error)

	// Stream follows the server's event stream until ctx is done.
	Stream(ctx context.Context, topics []string, lastEventID string) (<-chan StreamEvent, error)

	Health(ctx context.Context) (string, error)
	Close() error
}

// ListRequest holds the parameters of a listing call. Filters are sent as
// query parameters alongside the paging and sort parameters.
type ListRequest struct {
	Filters query.Filters
	Sort    string
	Page    int
	PerPage int
	Columns []string
	NoStats bool
}

// ExportRequest is the JSON body of an export call.
type ExportRequest struct {
	Format  string          `json:"format,omitempty"`
	Columns []export.Column `json:"columns,omitempty"`
	Sort    string          `json:"sort,omitempty"`
	Filters query.Filters   `json:"filters,omitempty"`
	Upload  bool            `json:"upload,omitempty"`
}

// ExportResult describes a finished export.
type ExportResult struct {
	Filename    string
	ContentType string
	Rows        int
	Upload      *model.ExportEvent
}

// StreamEvent is one server-sent event.
type StreamEvent struct {
	ID    string
	Topic string
	Data  []byte
}
