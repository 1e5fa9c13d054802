package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/alfredjeanlab/fleet/internal/events"
	"github.com/alfredjeanlab/fleet/internal/idgen"
	"github.com/alfredjeanlab/fleet/internal/listing"
	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
)

// Lister runs listings. *listing.Service implements it.
type Lister interface {
	List(ctx context.Context, name string, req query.Request) (*query.Page, error)
	Catalog(name string) (*query.Catalog, bool)
}

// Request selects what to export. Filters and Sort follow list semantics.
type Request struct {
	Format  string        `json:"format"`
	Columns []Column      `json:"columns,omitempty"`
	Sort    string        `json:"sort,omitempty"`
	Filters query.Filters `json:"filters,omitempty"`
}

// Exporter renders listings through the regular pipeline, with every
// matching row on one page and no statistics.
type Exporter struct {
	lister      Lister
	destination Destination
	publisher   events.Publisher
	prefix      string
	logger      *slog.Logger

	// Overridable in tests.
	newID func() (string, error)
	now   func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithDestination enables Upload.
func WithDestination(d Destination, prefix string) Option {
	return func(e *Exporter) {
		e.destination = d
		e.prefix = prefix
	}
}

// WithPublisher announces uploads on the event bus.
func WithPublisher(p events.Publisher) Option {
	return func(e *Exporter) { e.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

func New(lister Lister, opts ...Option) *Exporter {
	e := &Exporter{
		lister:    lister,
		publisher: events.NoopPublisher{},
		logger:    slog.Default(),
		newID:     idgen.ExportID,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanUpload reports whether an upload destination is configured.
func (e *Exporter) CanUpload() bool {
	return e.destination != nil
}

// Render writes the export file to w and returns the number of data rows.
func (e *Exporter) Render(ctx context.Context, name string, req Request, w io.Writer) (int, error) {
	format, cols, records, err := e.collect(ctx, name, req)
	if err != nil {
		return 0, err
	}
	if err := Write(w, format, name, cols, records); err != nil {
		return 0, fmt.Errorf("render %s: %w", name, err)
	}
	return len(records), nil
}

// Upload renders the export and stores it at {prefix}/{id}.{ext}. Completion
// and failure are published; a failed publish is logged, not returned.
func (e *Exporter) Upload(ctx context.Context, name string, req Request) (*model.ExportEvent, error) {
	if e.destination == nil {
		return nil, fmt.Errorf("export upload is not configured")
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	id, err := e.newID()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	rows, err := e.Render(ctx, name, req, &buf)
	if err == nil {
		key := path.Join(e.prefix, id+"."+format.Ext())
		if err = e.destination.Upload(ctx, key, format.ContentType(), buf.Bytes()); err == nil {
			ev := &model.ExportEvent{
				ID:        id,
				Listing:   name,
				Format:    string(format),
				Bucket:    e.destination.Bucket(),
				Key:       key,
				Rows:      rows,
				CreatedAt: e.now(),
			}
			e.publish(ctx, events.TopicExportCompleted, events.ExportCompleted{Export: ev})
			e.logger.Info("export uploaded", "id", id, "listing", name, "key", key, "rows", rows)
			return ev, nil
		}
	}
	e.publish(ctx, events.TopicExportFailed, events.ExportFailed{ID: id, Listing: name, Error: err.Error()})
	return nil, err
}

func (e *Exporter) collect(ctx context.Context, name string, req Request) (Format, []Column, []query.Record, error) {
	format, err := ParseFormat(req.Format)
	if err != nil {
		return "", nil, nil, err
	}
	catalog, ok := e.lister.Catalog(name)
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: %q", listing.ErrUnknownListing, name)
	}
	cols, err := Columns(catalog, req.Columns)
	if err != nil {
		return "", nil, nil, err
	}
	page, err := e.lister.List(ctx, name, query.Request{
		Filters:   req.Filters,
		Sort:      req.Sort,
		Columns:   Fields(catalog, cols),
		SkipStats: true,
		All:       true,
	})
	if err != nil {
		return "", nil, nil, err
	}
	return format, cols, page.Data, nil
}

func (e *Exporter) publish(ctx context.Context, topic string, event any) {
	if err := e.publisher.Publish(ctx, topic, event); err != nil {
		e.logger.Warn("publish export event", "topic", topic, "error", err)
	}
}
