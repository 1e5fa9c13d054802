package postgres

import (
	"fmt"

	"github.com/alfredjeanlab/fleet/internal/query"
)

type columnType int

const (
	colText columnType = iota
	colTime
	colNumeric
	colBool
)

// relation joins a parent table to a related one on parent.local = related.remote.
type relation struct {
	table  string
	local  string
	remote string
	// many marks one-to-many relations. They can only appear inside EXISTS,
	// never in a native path, since joining them would repeat parent rows.
	many bool
}

type table struct {
	columns   map[string]columnType
	relations map[string]relation
}

// schema mirrors migrations/. Paths in catalogs are validated against it at
// startup and the SQL compiler only emits identifiers found here.
var schema = map[string]table{
	"accounts": {
		columns: map[string]columnType{
			"id": colText, "account_number": colText, "name": colText,
		},
	},
	"vendors": {
		columns: map[string]columnType{"id": colText, "name": colText},
	},
	"equipment": {
		columns: map[string]columnType{
			"id": colText, "account_id": colText, "unit_number": colText, "vin": colText,
			"make": colText, "model": colText, "year": colNumeric, "equipment_type": colText,
			"status": colText, "created_at": colTime, "updated_at": colTime,
		},
		relations: map[string]relation{
			"account":          {table: "accounts", local: "account_id", remote: "id"},
			"telematics":       {table: "telematics", local: "id", remote: "equipment_id"},
			"iot_devices":      {table: "equipment_iot_devices", local: "id", remote: "equipment_id", many: true},
			"type_allocations": {table: "type_allocations", local: "id", remote: "equipment_id", many: true},
			"pm_schedules":     {table: "pm_schedules", local: "id", remote: "equipment_id", many: true},
			"service_requests": {table: "service_requests", local: "id", remote: "equipment_id", many: true},
			"workorders":       {table: "workorders", local: "id", remote: "equipment_id", many: true},
		},
	},
	"telematics": {
		columns: map[string]columnType{
			"equipment_id": colText, "latitude": colNumeric, "longitude": colNumeric,
			"odometer": colNumeric, "last_ping_at": colTime,
		},
	},
	"iot_devices": {
		columns: map[string]columnType{"id": colText, "serial_number": colText, "vendor_id": colText},
		relations: map[string]relation{
			"vendor": {table: "vendors", local: "vendor_id", remote: "id"},
		},
	},
	"equipment_iot_devices": {
		columns: map[string]columnType{
			"id": colText, "equipment_id": colText, "device_id": colText,
			"active": colBool, "installed_at": colTime,
		},
		relations: map[string]relation{
			"device": {table: "iot_devices", local: "device_id", remote: "id"},
		},
	},
	"pm_schedules": {
		columns: map[string]columnType{
			"id": colText, "equipment_id": colText, "kind": colText, "description": colText,
			"interval_days": colNumeric, "last_completed_at": colTime, "next_due_at": colTime,
			"status": colText, "created_at": colTime,
		},
		relations: map[string]relation{
			"equipment": {table: "equipment", local: "equipment_id", remote: "id"},
		},
	},
	"service_requests": {
		columns: map[string]columnType{
			"id": colText, "equipment_id": colText, "type": colText, "status": colText, "created_at": colTime,
		},
		relations: map[string]relation{
			"equipment": {table: "equipment", local: "equipment_id", remote: "id"},
		},
	},
	"workorders": {
		columns: map[string]columnType{
			"id": colText, "number": colText, "equipment_id": colText, "vendor_id": colText,
			"service_request_id": colText, "priority": colText, "status": colText,
			"description": colText, "start_at": colTime, "end_at": colTime,
			"total_cost": colNumeric, "created_at": colTime,
		},
		relations: map[string]relation{
			"equipment": {table: "equipment", local: "equipment_id", remote: "id"},
			"vendor":    {table: "vendors", local: "vendor_id", remote: "id"},
		},
	},
	"type_allocations": {
		columns: map[string]columnType{
			"id": colText, "equipment_id": colText, "line_item_id": colText, "created_at": colTime,
		},
	},
}

// resolvePath walks path from table through to-one relations and returns
// the type of the final column.
func resolvePath(table string, path query.Path) (columnType, error) {
	if len(path) == 0 {
		return 0, fmt.Errorf("empty path")
	}
	name := table
	for _, hop := range path.Relations() {
		rel, ok := schema[name].relations[hop]
		if !ok {
			return 0, fmt.Errorf("%s has no relation %q", name, hop)
		}
		if rel.many {
			return 0, fmt.Errorf("relation %s.%s is to-many", name, hop)
		}
		name = rel.table
	}
	t, ok := schema[name]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", name)
	}
	typ, ok := t.columns[path.Column()]
	if !ok {
		return 0, fmt.Errorf("%s has no column %q", name, path.Column())
	}
	return typ, nil
}
