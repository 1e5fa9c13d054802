package memory

import (
	"fmt"
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
)

// resolve walks path from a row of entity through to-one relations and
// returns the column value. A missing relation yields nil; an unknown hop
// or column is an error. row may be nil.
func resolve(entity string, row any, path query.Path) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	for _, hop := range path.Relations() {
		next, nextRow, ok := relation(entity, row, hop)
		if !ok {
			return nil, fmt.Errorf("%s has no relation %q", entity, hop)
		}
		entity, row = next, nextRow
	}
	cols, ok := columns(entity, row)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", entity)
	}
	v, ok := cols[path.Column()]
	if !ok {
		return nil, fmt.Errorf("%s has no column %q", entity, path.Column())
	}
	return v, nil
}

func relation(entity string, row any, hop string) (string, any, bool) {
	switch entity {
	case "equipment":
		e, _ := row.(*model.Equipment)
		switch hop {
		case "account":
			if e == nil {
				return "accounts", nil, true
			}
			return "accounts", e.Account, true
		case "telematics":
			if e == nil {
				return "telematics", nil, true
			}
			return "telematics", e.Telematics, true
		}
	case "equipment_iot_devices":
		m, _ := row.(*model.EquipmentIoTDevice)
		if hop == "device" {
			if m == nil {
				return "iot_devices", nil, true
			}
			return "iot_devices", m.Device, true
		}
	case "iot_devices":
		d, _ := row.(*model.IoTDevice)
		if hop == "vendor" {
			if d == nil {
				return "vendors", nil, true
			}
			return "vendors", d.Vendor, true
		}
	case "pm_schedules":
		p, _ := row.(*model.PMSchedule)
		if hop == "equipment" {
			if p == nil {
				return "equipment", nil, true
			}
			return "equipment", p.Equipment, true
		}
	case "workorders":
		w, _ := row.(*model.Workorder)
		switch hop {
		case "equipment":
			if w == nil {
				return "equipment", nil, true
			}
			return "equipment", w.Equipment, true
		case "vendor":
			if w == nil {
				return "vendors", nil, true
			}
			return "vendors", w.Vendor, true
		}
	}
	return "", nil, false
}

// columns returns the column values of a row. A nil row yields every
// column as nil.
func columns(entity string, row any) (map[string]any, bool) {
	switch entity {
	case "equipment":
		e, _ := row.(*model.Equipment)
		if e == nil {
			return nulls(equipmentColumns(&model.Equipment{})), true
		}
		return equipmentColumns(e), true
	case "accounts":
		a, _ := row.(*model.Account)
		if a == nil {
			return nulls(accountColumns(&model.Account{})), true
		}
		return accountColumns(a), true
	case "vendors":
		v, _ := row.(*model.Vendor)
		if v == nil {
			return map[string]any{"id": nil, "name": nil}, true
		}
		return map[string]any{"id": v.ID, "name": v.Name}, true
	case "telematics":
		t, _ := row.(*model.Telematics)
		if t == nil {
			return nulls(telematicsColumns(&model.Telematics{})), true
		}
		return telematicsColumns(t), true
	case "iot_devices":
		d, _ := row.(*model.IoTDevice)
		if d == nil {
			return map[string]any{"id": nil, "serial_number": nil, "vendor_id": nil}, true
		}
		return map[string]any{"id": d.ID, "serial_number": d.SerialNumber, "vendor_id": d.VendorID}, true
	case "equipment_iot_devices":
		m, _ := row.(*model.EquipmentIoTDevice)
		if m == nil {
			m = &model.EquipmentIoTDevice{}
		}
		return map[string]any{
			"id":           m.ID,
			"equipment_id": m.EquipmentID,
			"device_id":    m.DeviceID,
			"active":       m.Active,
			"installed_at": timeOf(&m.InstalledAt),
		}, true
	case "pm_schedules":
		p, _ := row.(*model.PMSchedule)
		if p == nil {
			return nulls(pmColumns(&model.PMSchedule{})), true
		}
		return pmColumns(p), true
	case "service_requests":
		r, _ := row.(*model.ServiceRequest)
		if r == nil {
			r = &model.ServiceRequest{}
		}
		return map[string]any{
			"id":           r.ID,
			"equipment_id": r.EquipmentID,
			"type":         string(r.Type),
			"status":       string(r.Status),
			"created_at":   timeOf(&r.CreatedAt),
		}, true
	case "workorders":
		w, _ := row.(*model.Workorder)
		if w == nil {
			return nulls(workorderColumns(&model.Workorder{})), true
		}
		return workorderColumns(w), true
	}
	return nil, false
}

func equipmentColumns(e *model.Equipment) map[string]any {
	var year any
	if e.Year != nil {
		year = float64(*e.Year)
	}
	return map[string]any{
		"id":             e.ID,
		"account_id":     e.AccountID,
		"unit_number":    e.UnitNumber,
		"vin":            e.VIN,
		"make":           e.Make,
		"model":          e.Model,
		"year":           year,
		"equipment_type": e.EquipmentType,
		"status":         string(e.Status),
		"created_at":     timeOf(&e.CreatedAt),
		"updated_at":     timeOf(&e.UpdatedAt),
	}
}

func accountColumns(a *model.Account) map[string]any {
	return map[string]any{"id": a.ID, "account_number": a.AccountNumber, "name": a.Name}
}

func telematicsColumns(t *model.Telematics) map[string]any {
	return map[string]any{
		"equipment_id": t.EquipmentID,
		"latitude":     floatOf(t.Latitude),
		"longitude":    floatOf(t.Longitude),
		"odometer":     floatOf(t.Odometer),
		"last_ping_at": timeOf(t.LastPingAt),
	}
}

func pmColumns(p *model.PMSchedule) map[string]any {
	return map[string]any{
		"id":                p.ID,
		"equipment_id":      p.EquipmentID,
		"kind":              string(p.Kind),
		"description":       p.Description,
		"interval_days":     float64(p.IntervalDays),
		"last_completed_at": timeOf(p.LastCompletedAt),
		"next_due_at":       timeOf(p.NextDueAt),
		"status":            string(p.Status),
		"created_at":        timeOf(&p.CreatedAt),
	}
}

func workorderColumns(w *model.Workorder) map[string]any {
	return map[string]any{
		"id":                 w.ID,
		"number":             w.Number,
		"equipment_id":       w.EquipmentID,
		"vendor_id":          w.VendorID,
		"service_request_id": w.ServiceRequestID,
		"priority":           string(w.Priority),
		"status":             string(w.Status),
		"description":        w.Description,
		"start_at":           timeOf(w.StartAt),
		"end_at":             timeOf(w.EndAt),
		"total_cost":         floatOf(w.TotalCost),
		"created_at":         timeOf(&w.CreatedAt),
	}
}

// nulls keeps the column set of cols with every value nil.
func nulls(cols map[string]any) map[string]any {
	for k := range cols {
		cols[k] = nil
	}
	return cols
}

func timeOf(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func floatOf(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
