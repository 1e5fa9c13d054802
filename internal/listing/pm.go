package listing

import (
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
)

// PMCatalog is the field table of the PM/DOT schedule listing.
var PMCatalog = query.MustCatalog(store.EntityPMSchedules, "id",
	[]query.Field{
		query.NativeField("id", query.String, "id"),
		query.NativeField("equipment_id", query.String, "equipment_id"),
		query.NativeField("kind", query.String, "kind"),
		query.NativeField("description", query.String, "description"),
		query.NativeField("status", query.String, "status"),
		query.NativeField("interval_days", query.Number, "interval_days"),
		query.NativeField("last_completed_at", query.Date, "last_completed_at"),
		query.NativeField("next_due_at", query.Date, "next_due_at"),
		query.NativeField("created_at", query.Date, "created_at"),
		query.NativeField("unit_number", query.String, "equipment", "unit_number"),
		query.NativeField("account_id", query.String, "equipment", "account_id"),
		query.NativeField("account_number", query.String, "equipment", "account", "account_number"),
		query.NativeField("account_name", query.String, "equipment", "account", "name"),
		query.VirtualField("driver_name", query.String),
		query.VirtualField("due_status", query.String),
		query.VirtualField("days_until_due", query.Number),
	},
	[]query.FilterSpec{
		{Key: "account_ids", Match: query.MatchIn, Fields: []string{"account_id"}},
		{Key: "equipment_id", Match: query.MatchIn, Fields: []string{"equipment_id"}},
		{Key: "kind", Match: query.MatchEqual, Fields: []string{"kind"}},
		{Key: "status", Match: query.MatchEqual, Fields: []string{"status"}},
		{Key: "description", Match: query.MatchContains, Fields: []string{"description"}},
		{Key: "unit_number", Match: query.MatchContains, Fields: []string{"unit_number"}},
		{Key: "account_number", Match: query.MatchContains, Fields: []string{"account_number"}},
		{Key: "account", Match: query.MatchContains, Fields: []string{"account_number", "account_name"}},
		{Key: "equipment", Match: query.MatchContains, Fields: []string{"unit_number", "description"}},
		{Key: "next_due_at", Match: query.MatchDay, Fields: []string{"next_due_at"}},
		{Key: "due_from", ToKey: "due_to", Match: query.MatchDateRange, Fields: []string{"next_due_at"}},
		{Key: "completed_from", ToKey: "completed_to", Match: query.MatchDateRange, Fields: []string{"last_completed_at"}},
		{Key: "due_status", Match: query.MatchEqual, Fields: []string{"due_status"}},
		{Key: "driver_name", Match: query.MatchContains, Fields: []string{"driver_name"}},
	},
)

// ProjectPMSchedule flattens a schedule. due_status and days_until_due are
// relative to now.
func ProjectPMSchedule(p *model.PMSchedule, now time.Time) query.Record {
	r := query.Record{
		"id":                p.ID,
		"equipment_id":      p.EquipmentID,
		"kind":              string(p.Kind),
		"description":       p.Description,
		"status":            string(p.Status),
		"interval_days":     float64(p.IntervalDays),
		"last_completed_at": timeValue(p.LastCompletedAt),
		"next_due_at":       timeValue(p.NextDueAt),
		"created_at":        timeValue(&p.CreatedAt),
		"unit_number":       nil,
		"account_id":        nil,
		"account_number":    nil,
		"account_name":      nil,
		"driver_name":       driverName(p.Equipment),
		"due_status":        nil,
		"days_until_due":    nil,
	}
	if e := p.Equipment; e != nil {
		r["unit_number"] = e.UnitNumber
		r["account_id"] = e.AccountID
		if a := e.Account; a != nil {
			r["account_number"] = a.AccountNumber
			r["account_name"] = a.Name
		}
	}
	if s, ok := p.DueStatus(now); ok {
		r["due_status"] = string(s)
	}
	if d, ok := p.DaysUntilDue(now); ok {
		r["days_until_due"] = float64(d)
	}
	return r
}

// PMBuckets are the statistics of the PM/DOT listing.
func PMBuckets(st store.Store) []query.Bucket {
	open := query.Not{P: query.Eq("status", string(model.ScheduleCompleted))}
	return []query.Bucket{
		countBucket(st, "overdue", store.EntityPMSchedules, func(now time.Time) query.Predicate {
			return query.And{open, query.Before("next_due_at", now)}
		}),
		countBucket(st, "due_soon", store.EntityPMSchedules, func(now time.Time) query.Predicate {
			return query.And{
				open,
				query.Not{P: query.Before("next_due_at", now)},
				query.Before("next_due_at", now.Add(model.DueSoonWindow)),
			}
		}),
		countBucket(st, "completed", store.EntityPMSchedules, func(time.Time) query.Predicate {
			return query.Eq("status", string(model.ScheduleCompleted))
		}),
	}
}
