package listing

import (
	"fmt"
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
)

// WorkorderCatalog is the field table of the workorder listing.
var WorkorderCatalog = query.MustCatalog(store.EntityWorkorders, "id",
	[]query.Field{
		query.NativeField("id", query.String, "id"),
		query.NativeField("number", query.String, "number"),
		query.NativeField("equipment_id", query.String, "equipment_id"),
		query.NativeField("priority", query.String, "priority"),
		query.NativeField("status", query.String, "status"),
		query.NativeField("description", query.String, "description"),
		query.NativeField("start_at", query.Date, "start_at"),
		query.NativeField("end_at", query.Date, "end_at"),
		query.NativeField("total_cost", query.Number, "total_cost"),
		query.NativeField("created_at", query.Date, "created_at"),
		query.NativeField("vendor_name", query.String, "vendor", "name"),
		query.NativeField("unit_number", query.String, "equipment", "unit_number"),
		query.NativeField("account_id", query.String, "equipment", "account_id"),
		query.NativeField("account_number", query.String, "equipment", "account", "account_number"),
		query.NativeField("account_name", query.String, "equipment", "account", "name"),
		query.VirtualField("driver_name", query.String),
		query.VirtualField("priority_range", query.String),
	},
	[]query.FilterSpec{
		{Key: "account_ids", Match: query.MatchIn, Fields: []string{"account_id"}},
		{Key: "equipment_id", Match: query.MatchIn, Fields: []string{"equipment_id"}},
		{Key: "number", Match: query.MatchContains, Fields: []string{"number"}},
		{Key: "priority", Match: query.MatchEqual, Fields: []string{"priority"}},
		{Key: "status", Match: query.MatchEqual, Fields: []string{"status"}},
		{Key: "description", Match: query.MatchContains, Fields: []string{"description"}},
		{Key: "vendor_name", Match: query.MatchContains, Fields: []string{"vendor_name"}},
		{Key: "unit_number", Match: query.MatchContains, Fields: []string{"unit_number"}},
		{Key: "account_number", Match: query.MatchContains, Fields: []string{"account_number"}},
		{Key: "account", Match: query.MatchContains, Fields: []string{"account_number", "account_name"}},
		{Key: "equipment", Match: query.MatchContains, Fields: []string{"unit_number", "number"}},
		{Key: "created_at", Match: query.MatchDay, Fields: []string{"created_at"}},
		{Key: "created_from", ToKey: "created_to", Match: query.MatchDateRange, Fields: []string{"created_at"}},
		{Key: "start_from", ToKey: "start_to", Match: query.MatchDateRange, Fields: []string{"start_at"}},
		{Key: "driver_name", Match: query.MatchContains, Fields: []string{"driver_name"}},
		{Key: "priority_range", Match: query.MatchContains, Fields: []string{"priority_range"}},
	},
)

// ProjectWorkorder flattens a workorder.
func ProjectWorkorder(w *model.Workorder, _ time.Time) query.Record {
	r := query.Record{
		"id":             w.ID,
		"number":         w.Number,
		"equipment_id":   w.EquipmentID,
		"priority":       string(w.Priority),
		"status":         string(w.Status),
		"description":    w.Description,
		"start_at":       timeValue(w.StartAt),
		"end_at":         timeValue(w.EndAt),
		"total_cost":     floatValue(w.TotalCost),
		"created_at":     timeValue(&w.CreatedAt),
		"vendor_name":    nil,
		"unit_number":    nil,
		"account_id":     nil,
		"account_number": nil,
		"account_name":   nil,
		"driver_name":    driverName(w.Equipment),
		"priority_range": nil,
	}
	if v := w.Vendor; v != nil {
		r["vendor_name"] = v.Name
	}
	if e := w.Equipment; e != nil {
		r["unit_number"] = e.UnitNumber
		r["account_id"] = e.AccountID
		if a := e.Account; a != nil {
			r["account_number"] = a.AccountNumber
			r["account_name"] = a.Name
		}
	}
	if w.StartAt != nil && w.EndAt != nil {
		r["priority_range"] = PriorityRange(*w.StartAt, *w.EndAt)
	}
	return r
}

// PriorityRange formats a start/end pair as "Jan 2 – Jan 5, 2024", taking
// the year from start.
func PriorityRange(start, end time.Time) string {
	start, end = start.UTC(), end.UTC()
	return fmt.Sprintf("%s – %s, %d", start.Format("Jan 2"), end.Format("Jan 2"), start.Year())
}

// WorkorderBuckets are the statistics of the workorder listing.
func WorkorderBuckets(st store.Store) []query.Bucket {
	return []query.Bucket{
		countBucket(st, "emergency_in_progress", store.EntityWorkorders, func(time.Time) query.Predicate {
			return query.And{
				query.Eq("priority", string(model.PriorityEmergency)),
				query.Eq("status", string(model.WorkorderInProgress)),
			}
		}),
		countBucket(st, "open", store.EntityWorkorders, func(time.Time) query.Predicate {
			return query.Eq("status", string(model.WorkorderOpen))
		}),
		countBucket(st, "completed", store.EntityWorkorders, func(time.Time) query.Predicate {
			return query.Eq("status", string(model.WorkorderCompleted))
		}),
	}
}
