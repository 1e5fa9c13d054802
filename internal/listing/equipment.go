package listing

import (
	"context"
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
)

// EquipmentCatalog is the field table of the equipment listing.
var EquipmentCatalog = query.MustCatalog(store.EntityEquipment, "id",
	[]query.Field{
		query.NativeField("id", query.String, "id"),
		query.NativeField("account_id", query.String, "account_id"),
		query.NativeField("account_number", query.String, "account", "account_number"),
		query.NativeField("account_name", query.String, "account", "name"),
		query.NativeField("unit_number", query.String, "unit_number"),
		query.NativeField("vin", query.String, "vin"),
		query.NativeField("make", query.String, "make"),
		query.NativeField("model", query.String, "model"),
		query.NativeField("year", query.Number, "year"),
		query.NativeField("equipment_type", query.String, "equipment_type"),
		query.NativeField("status", query.String, "status"),
		query.NativeField("created_at", query.Date, "created_at"),
		query.NativeField("latitude", query.Number, "telematics", "latitude"),
		query.NativeField("longitude", query.Number, "telematics", "longitude"),
		query.NativeField("odometer", query.Number, "telematics", "odometer"),
		query.NativeField("last_ping_at", query.Date, "telematics", "last_ping_at"),
		query.VirtualField("driver_name", query.String),
		query.VirtualField("vendor_name", query.String, store.IncludeIoTDevices),
		query.VirtualField("contract_start_date", query.Date, store.IncludeContracts),
		query.VirtualField("contract_end_date", query.Date, store.IncludeContracts),
		query.VirtualField("contract_term_type", query.String, store.IncludeContracts),
		query.VirtualField("attachment_url", query.String, store.IncludeContracts),
		query.VirtualField("attachment_mime_type", query.String, store.IncludeContracts),
	},
	[]query.FilterSpec{
		{Key: "account_ids", Match: query.MatchIn, Fields: []string{"account_id"}},
		{Key: "equipment_id", Match: query.MatchIn, Fields: []string{"id"}},
		{Key: "status", Match: query.MatchEqual, Fields: []string{"status"}},
		{Key: "equipment_type", Match: query.MatchEqual, Fields: []string{"equipment_type"}},
		{Key: "year", Match: query.MatchEqual, Fields: []string{"year"}},
		{Key: "unit_number", Match: query.MatchContains, Fields: []string{"unit_number"}},
		{Key: "vin", Match: query.MatchContains, Fields: []string{"vin"}},
		{Key: "make", Match: query.MatchContains, Fields: []string{"make"}},
		{Key: "model", Match: query.MatchContains, Fields: []string{"model"}},
		{Key: "account_number", Match: query.MatchContains, Fields: []string{"account_number"}},
		{Key: "account", Match: query.MatchContains, Fields: []string{"account_number", "account_name"}},
		{Key: "equipment", Match: query.MatchContains, Fields: []string{"unit_number", "vin"}},
		{Key: "created_at", Match: query.MatchDay, Fields: []string{"created_at"}},
		{Key: "created_from", ToKey: "created_to", Match: query.MatchDateRange, Fields: []string{"created_at"}},
		{Key: "latitude", Match: query.MatchTolerance, Fields: []string{"latitude"}},
		{Key: "longitude", Match: query.MatchTolerance, Fields: []string{"longitude"}},
		{Key: "driver_name", Match: query.MatchContains, Fields: []string{"driver_name"}},
		{Key: "vendor_name", Match: query.MatchContains, Fields: []string{"vendor_name"}},
		{Key: "contract_term_type", Match: query.MatchEqual, Fields: []string{"contract_term_type"}},
		{Key: "contract_end_from", ToKey: "contract_end_to", Match: query.MatchDateRange, Fields: []string{"contract_end_date"}},
	},
)

// ProjectEquipment flattens a unit into a record holding every catalog key.
// Virtual fields whose relations were not hydrated are nil.
func ProjectEquipment(e *model.Equipment, _ time.Time) query.Record {
	r := query.Record{
		"id":                   e.ID,
		"account_id":           e.AccountID,
		"account_number":       nil,
		"account_name":         nil,
		"unit_number":          e.UnitNumber,
		"vin":                  e.VIN,
		"make":                 e.Make,
		"model":                e.Model,
		"year":                 nil,
		"equipment_type":       e.EquipmentType,
		"status":               string(e.Status),
		"created_at":           timeValue(&e.CreatedAt),
		"latitude":             nil,
		"longitude":            nil,
		"odometer":             nil,
		"last_ping_at":         nil,
		"driver_name":          driverName(e),
		"vendor_name":          nil,
		"contract_start_date":  nil,
		"contract_end_date":    nil,
		"contract_term_type":   nil,
		"attachment_url":       nil,
		"attachment_mime_type": nil,
	}
	if e.Year != nil {
		r["year"] = float64(*e.Year)
	}
	if a := e.Account; a != nil {
		r["account_number"] = a.AccountNumber
		r["account_name"] = a.Name
	}
	if t := e.Telematics; t != nil {
		r["latitude"] = floatValue(t.Latitude)
		r["longitude"] = floatValue(t.Longitude)
		r["odometer"] = floatValue(t.Odometer)
		r["last_ping_at"] = timeValue(t.LastPingAt)
	}
	if v := e.Vendor(); v != nil {
		r["vendor_name"] = v.Name
	}
	if sa := e.ScheduleAgreement(); sa != nil {
		r["contract_end_date"] = timeValue(sa.EndDate)
		if sa.TermType != "" {
			r["contract_term_type"] = string(sa.TermType)
		}
		if ma := sa.MasterAgreement; ma != nil {
			r["contract_start_date"] = timeValue(ma.StartDate)
		}
		if a := sa.FirstAttachment(); a != nil {
			r["attachment_url"] = a.URL
			r["attachment_mime_type"] = a.MimeType
		}
	}
	return r
}

// EquipmentBuckets are the statistics of the equipment listing.
func EquipmentBuckets(st store.Store) []query.Bucket {
	activeDevice := query.Exists{Relation: "iot_devices", Where: query.Eq("active", true)}
	return []query.Bucket{
		countBucket(st, "iot_equipped", store.EntityEquipment, func(time.Time) query.Predicate {
			return activeDevice
		}),
		countBucket(st, "not_equipped", store.EntityEquipment, func(time.Time) query.Predicate {
			return query.Not{P: activeDevice}
		}),
		countBucket(st, "dot_overdue", store.EntityEquipment, func(now time.Time) query.Predicate {
			return query.Exists{Relation: "pm_schedules", Where: query.And{
				query.Eq("kind", string(model.ScheduleDOT)),
				query.Not{P: query.Eq("status", string(model.ScheduleCompleted))},
				query.Before("next_due_at", now),
			}}
		}),
		countBucket(st, "ers_in_progress", store.EntityEquipment, func(time.Time) query.Predicate {
			return query.Exists{Relation: "service_requests", Where: query.And{
				query.Eq("type", string(model.RequestERS)),
				query.Eq("status", string(model.RequestInProgress)),
			}}
		}),
	}
}

// countBucket counts entity rows among ids that also satisfy pred(now).
func countBucket(st store.Store, name, entity string, pred func(now time.Time) query.Predicate) query.Bucket {
	return query.Bucket{
		Name: name,
		Count: func(ctx context.Context, ids []string, now time.Time) (int, error) {
			return st.Count(ctx, entity, query.And{
				query.In("id", query.StringsToAny(ids)...),
				pred(now),
			})
		},
	}
}

func driverName(e *model.Equipment) any {
	if e == nil {
		return nil
	}
	return "Driver " + e.UnitNumber
}

func floatValue(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func timeValue(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}
