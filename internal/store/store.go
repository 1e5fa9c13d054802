package store

import (
	"context"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
)

// Entities a Count or ValidatePath call can target.
const (
	EntityEquipment       = "equipment"
	EntityPMSchedules     = "pm_schedules"
	EntityWorkorders      = "workorders"
	EntityServiceRequests = "service_requests"
)

// Includes the equipment fetch can hydrate. Relations loaded with every row
// (account, telematics, a schedule's equipment, a workorder's vendor) are
// not includes.
const (
	// IncludeIoTDevices loads device mappings with their device and vendor,
	// active mappings first, newest installation first.
	IncludeIoTDevices = "iot_devices"
	// IncludeContracts loads type allocations through line items to the
	// schedule agreement, its master agreement and its attachments.
	IncludeContracts = "contracts"
)

// Store defines the read interface the listing engine needs.
type Store interface {
	// Fetches return the rows matching f.Where in f.Order, paged by
	// f.Limit/f.Offset, plus the number of rows matching f.Where.
	FetchEquipment(ctx context.Context, f query.Fetch) ([]*model.Equipment, int, error)
	FetchPMSchedules(ctx context.Context, f query.Fetch) ([]*model.PMSchedule, int, error)
	FetchWorkorders(ctx context.Context, f query.Fetch) ([]*model.Workorder, int, error)

	// Count returns the number of entity rows matching where.
	Count(ctx context.Context, entity string, where query.Predicate) (int, error)

	// ValidatePath reports whether path resolves to a column of entity
	// through to-one relations.
	ValidatePath(entity string, path query.Path) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
