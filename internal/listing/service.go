// Package listing binds the fleet catalogs, projectors and statistics to the
// query engine, one listing per logical entity.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
)

// Listing names.
const (
	Equipment  = "equipment"
	PM         = "pm"
	Workorders = "workorders"
)

// Names lists every listing in display order.
var Names = []string{Equipment, PM, Workorders}

// ErrUnknownListing is returned for a listing name that is not registered.
var ErrUnknownListing = errors.New("unknown listing")

// RequiredParam scopes every listing to a set of accounts.
const RequiredParam = "account_ids"

// Options tunes the listings built by New.
type Options struct {
	// MaxPerPage caps perPage on list calls; zero leaves it uncapped.
	MaxPerPage int
	// Now defaults to the wall clock in UTC.
	Now    func() time.Time
	Logger *slog.Logger
}

type runner interface {
	Run(ctx context.Context, req query.Request) (*query.Page, error)
	Get(ctx context.Context, id string) (query.Record, error)
}

// Service runs the fleet listings against a store.
type Service struct {
	runners  map[string]runner
	catalogs map[string]*query.Catalog
}

// New wires every listing to st.
func New(st store.Store, opts Options) *Service {
	equipment := &query.Listing[*model.Equipment]{
		Name:       Equipment,
		Catalog:    EquipmentCatalog,
		Required:   []string{RequiredParam},
		Fetch:      st.FetchEquipment,
		Project:    ProjectEquipment,
		Buckets:    EquipmentBuckets(st),
		MaxPerPage: opts.MaxPerPage,
		Now:        opts.Now,
		Logger:     opts.Logger,
	}
	pm := &query.Listing[*model.PMSchedule]{
		Name:       PM,
		Catalog:    PMCatalog,
		Required:   []string{RequiredParam},
		Fetch:      st.FetchPMSchedules,
		Project:    ProjectPMSchedule,
		Buckets:    PMBuckets(st),
		MaxPerPage: opts.MaxPerPage,
		Now:        opts.Now,
		Logger:     opts.Logger,
	}
	workorders := &query.Listing[*model.Workorder]{
		Name:       Workorders,
		Catalog:    WorkorderCatalog,
		Required:   []string{RequiredParam},
		Fetch:      st.FetchWorkorders,
		Project:    ProjectWorkorder,
		Buckets:    WorkorderBuckets(st),
		MaxPerPage: opts.MaxPerPage,
		Now:        opts.Now,
		Logger:     opts.Logger,
	}
	return &Service{
		runners: map[string]runner{
			Equipment:  equipment,
			PM:         pm,
			Workorders: workorders,
		},
		catalogs: map[string]*query.Catalog{
			Equipment:  EquipmentCatalog,
			PM:         PMCatalog,
			Workorders: WorkorderCatalog,
		},
	}
}

// Validate checks every catalog against the store schema. Servers call it
// once at startup.
func (s *Service) Validate(schema query.Schema) error {
	for _, name := range Names {
		if err := s.catalogs[name].Validate(schema); err != nil {
			return fmt.Errorf("listing %s: %w", name, err)
		}
	}
	return nil
}

// List runs one page of the named listing.
func (s *Service) List(ctx context.Context, name string, req query.Request) (*query.Page, error) {
	r, ok := s.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownListing, name)
	}
	return r.Run(ctx, req)
}

// Get fetches one entity of the named listing.
func (s *Service) Get(ctx context.Context, name, id string) (query.Record, error) {
	r, ok := s.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownListing, name)
	}
	return r.Get(ctx, id)
}

// Catalog returns the field table of the named listing.
func (s *Service) Catalog(name string) (*query.Catalog, bool) {
	c, ok := s.catalogs[name]
	return c, ok
}
