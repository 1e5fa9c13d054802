// Package server exposes the fleet listings over HTTP and health over gRPC.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alfredjeanlab/fleet/internal/events"
	"github.com/alfredjeanlab/fleet/internal/export"
	"github.com/alfredjeanlab/fleet/internal/listing"
	"github.com/alfredjeanlab/fleet/internal/store"
)

// Options configures a Server.
type Options struct {
	// AuthToken enables bearer authentication when non-empty.
	AuthToken string
	// Publisher receives export events; nil publishes nowhere.
	Publisher events.Publisher
	// Destination enables uploaded exports under ExportPrefix.
	Destination  export.Destination
	ExportPrefix string
	Logger       *slog.Logger
}

// Server serves listing, export and event stream requests.
type Server struct {
	listings  *listing.Service
	exporter  *export.Exporter
	store     store.Store
	publisher events.Publisher
	sseHub    *sseHub
	authToken string
	logger    *slog.Logger
}

// New returns a server running svc's listings. st is pinged by health checks.
func New(svc *listing.Service, st store.Store, opts Options) *Server {
	s := &Server{
		listings:  svc,
		store:     st,
		publisher: opts.Publisher,
		sseHub:    newSSEHub(),
		authToken: opts.AuthToken,
		logger:    opts.Logger,
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	exportOpts := []export.Option{
		export.WithPublisher(busPublisher{s}),
		export.WithLogger(s.logger),
	}
	if opts.Destination != nil {
		exportOpts = append(exportOpts, export.WithDestination(opts.Destination, opts.ExportPrefix))
	}
	s.exporter = export.New(svc, exportOpts...)
	return s
}

// busPublisher fans export events out to stream clients and the event bus.
type busPublisher struct{ s *Server }

func (b busPublisher) Publish(ctx context.Context, topic string, event any) error {
	b.s.broadcastEvent(topic, event)
	return b.s.publisher.Publish(ctx, topic, event)
}

func (busPublisher) Close() error { return nil }

// broadcastEvent fans an event out to SSE clients.
func (s *Server) broadcastEvent(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}
