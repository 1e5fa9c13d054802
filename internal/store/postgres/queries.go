package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
)

// executor is the read side of *sql.DB and *sql.Tx.
type executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ executor = (*sql.DB)(nil)

// equipmentColumns selects an equipment row and its account from the given
// aliases, in the order scanEquipment expects.
func equipmentColumns(e, account string) string {
	return strings.NewReplacer("{e}", e, "{a}", account).Replace(`{e}.id, {e}.account_id, {e}.unit_number, {e}.vin,
	{e}.make, {e}.model, {e}.year, {e}.equipment_type, {e}.status, {e}.created_at, {e}.updated_at,
	{a}.id, {a}.account_number, {a}.name`)
}

const telematicsColumns = `telematics.equipment_id, telematics.latitude, telematics.longitude,
	telematics.odometer, telematics.last_ping_at`

const pmScheduleColumns = `pm_schedules.id, pm_schedules.equipment_id, pm_schedules.kind,
	pm_schedules.description, pm_schedules.interval_days, pm_schedules.last_completed_at,
	pm_schedules.next_due_at, pm_schedules.status, pm_schedules.created_at`

const workorderColumns = `workorders.id, workorders.number, workorders.equipment_id,
	workorders.vendor_id, workorders.service_request_id, workorders.priority, workorders.status,
	workorders.description, workorders.start_at, workorders.end_at, workorders.total_cost,
	workorders.created_at, vendor.id, vendor.name`

// selectStatement is a compiled findMany over one base table.
type selectStatement struct {
	b   *sqlBuilder
	sql string
}

// buildSelect compiles f into a single statement returning COUNT(*) OVER()
// ahead of columns, so rows and the total come from one snapshot. Joins
// named in preload are added before the predicate so it reuses them.
func buildSelect(table, columns string, preload [][]string, f query.Fetch) (*selectStatement, error) {
	b := newBuilder(table)
	for _, hops := range preload {
		if _, err := b.join(hops); err != nil {
			return nil, err
		}
	}
	where, err := b.Where(f.Where)
	if err != nil {
		return nil, fmt.Errorf("compile where: %w", err)
	}
	order, err := b.OrderBy(f.Order)
	if err != nil {
		return nil, fmt.Errorf("compile order: %w", err)
	}

	q := "SELECT COUNT(*) OVER() AS total_count, " + columns + "\nFROM " + b.From()
	if where != "" {
		q += "\nWHERE " + where
	}
	if order != "" {
		q += "\nORDER BY " + order
	}
	if f.Limit > 0 {
		q += "\nLIMIT " + b.nextArg(f.Limit)
	}
	if f.Offset > 0 {
		q += "\nOFFSET " + b.nextArg(f.Offset)
	}
	return &selectStatement{b: b, sql: q}, nil
}

// fetchRows runs st and scans every row. When an offset skips past the last
// row no window total comes back, so the total is counted separately.
func fetchRows[T any](ctx context.Context, db executor, table string, st *selectStatement, f query.Fetch, scan func(scannable) (T, int, error)) ([]T, int, error) {
	rows, err := db.QueryContext(ctx, st.sql, st.b.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer rows.Close()

	var (
		out   []T
		total int
	)
	for rows.Next() {
		v, t, err := scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", table, err)
		}
		total = t
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", table, err)
	}

	if len(out) == 0 && f.Offset > 0 {
		total, err = queryCount(ctx, db, table, f.Where)
		if err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func queryFetchEquipment(ctx context.Context, db executor, f query.Fetch) ([]*model.Equipment, int, error) {
	st, err := buildSelect("equipment",
		equipmentColumns("equipment", "account")+",\n\t"+telematicsColumns,
		[][]string{{"account"}, {"telematics"}}, f)
	if err != nil {
		return nil, 0, err
	}
	equipment, total, err := fetchRows(ctx, db, "equipment", st, f, scanEquipmentWithTotal)
	if err != nil {
		return nil, 0, err
	}
	if err := loadEquipmentIncludes(ctx, db, equipment, f.Include); err != nil {
		return nil, 0, err
	}
	return equipment, total, nil
}

func loadEquipmentIncludes(ctx context.Context, db executor, equipment []*model.Equipment, include []string) error {
	if len(equipment) == 0 {
		return nil
	}
	for _, inc := range include {
		var err error
		switch inc {
		case store.IncludeIoTDevices:
			err = queryLoadIoTDevices(ctx, db, equipment)
		case store.IncludeContracts:
			err = queryLoadContracts(ctx, db, equipment)
		default:
			err = fmt.Errorf("unknown include %q", inc)
		}
		if err != nil {
			return fmt.Errorf("include %s: %w", inc, err)
		}
	}
	return nil
}

func queryFetchPMSchedules(ctx context.Context, db executor, f query.Fetch) ([]*model.PMSchedule, int, error) {
	st, err := buildSelect("pm_schedules",
		pmScheduleColumns+",\n\t"+equipmentColumns("equipment", "equipment__account"),
		[][]string{{"equipment", "account"}}, f)
	if err != nil {
		return nil, 0, err
	}
	schedules, total, err := fetchRows(ctx, db, "pm_schedules", st, f, scanPMScheduleWithTotal)
	if err != nil {
		return nil, 0, err
	}
	if err := loadEquipmentIncludes(ctx, db, scheduleEquipment(schedules), f.Include); err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

func queryFetchWorkorders(ctx context.Context, db executor, f query.Fetch) ([]*model.Workorder, int, error) {
	st, err := buildSelect("workorders",
		workorderColumns+",\n\t"+equipmentColumns("equipment", "equipment__account"),
		[][]string{{"vendor"}, {"equipment", "account"}}, f)
	if err != nil {
		return nil, 0, err
	}
	workorders, total, err := fetchRows(ctx, db, "workorders", st, f, scanWorkorderWithTotal)
	if err != nil {
		return nil, 0, err
	}
	if err := loadEquipmentIncludes(ctx, db, workorderEquipment(workorders), f.Include); err != nil {
		return nil, 0, err
	}
	return workorders, total, nil
}

func scheduleEquipment(schedules []*model.PMSchedule) []*model.Equipment {
	out := make([]*model.Equipment, 0, len(schedules))
	for _, p := range schedules {
		if p.Equipment != nil {
			out = append(out, p.Equipment)
		}
	}
	return out
}

func workorderEquipment(workorders []*model.Workorder) []*model.Equipment {
	out := make([]*model.Equipment, 0, len(workorders))
	for _, w := range workorders {
		if w.Equipment != nil {
			out = append(out, w.Equipment)
		}
	}
	return out
}

func queryCount(ctx context.Context, db executor, entity string, where query.Predicate) (int, error) {
	if _, ok := schema[entity]; !ok {
		return 0, fmt.Errorf("count: unknown entity %q", entity)
	}
	b := newBuilder(entity)
	w, err := b.Where(where)
	if err != nil {
		return 0, fmt.Errorf("count %s: compile where: %w", entity, err)
	}
	q := "SELECT COUNT(*) FROM " + b.From()
	if w != "" {
		q += "\nWHERE " + w
	}
	var n int
	if err := db.QueryRowContext(ctx, q, b.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", entity, err)
	}
	return n, nil
}

// equipmentIndex groups equipment by id; the same unit can appear under
// several schedules or workorders.
func equipmentIndex(equipment []*model.Equipment) ([]string, map[string][]*model.Equipment) {
	byID := make(map[string][]*model.Equipment, len(equipment))
	var ids []string
	for _, e := range equipment {
		if _, ok := byID[e.ID]; !ok {
			ids = append(ids, e.ID)
		}
		byID[e.ID] = append(byID[e.ID], e)
	}
	return ids, byID
}

// queryLoadIoTDevices hydrates device mappings for every unit in one query
// (not per-unit N+1). Active mappings come first, newest installation first.
func queryLoadIoTDevices(ctx context.Context, db executor, equipment []*model.Equipment) error {
	ids, byID := equipmentIndex(equipment)
	rows, err := db.QueryContext(ctx, `
		SELECT m.id, m.equipment_id, m.device_id, m.active, m.installed_at,
			d.id, d.serial_number, d.vendor_id, v.id, v.name
		FROM equipment_iot_devices m
		JOIN iot_devices d ON d.id = m.device_id
		LEFT JOIN vendors v ON v.id = d.vendor_id
		WHERE m.equipment_id = ANY($1)
		ORDER BY m.equipment_id, m.active DESC, m.installed_at DESC, m.id`,
		pq.Array(ids),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanIoTMapping(rows)
		if err != nil {
			return err
		}
		for _, e := range byID[m.EquipmentID] {
			e.IoTDevices = append(e.IoTDevices, m)
		}
	}
	return rows.Err()
}

// queryLoadContracts hydrates type allocations down to their schedule and
// master agreements, then the schedule agreements' attachments. Agreements
// shared by several units are loaded once.
func queryLoadContracts(ctx context.Context, db executor, equipment []*model.Equipment) error {
	ids, byID := equipmentIndex(equipment)
	rows, err := db.QueryContext(ctx, `
		SELECT ta.id, ta.equipment_id, ta.line_item_id,
			li.id, li.schedule_agreement_id, li.description,
			sa.id, sa.master_agreement_id, sa.number, sa.term_type, sa.end_date,
			ma.id, ma.account_id, ma.number, ma.start_date
		FROM type_allocations ta
		LEFT JOIN schedule_line_items li ON li.id = ta.line_item_id
		LEFT JOIN schedule_agreements sa ON sa.id = li.schedule_agreement_id
		LEFT JOIN master_agreements ma ON ma.id = sa.master_agreement_id
		WHERE ta.equipment_id = ANY($1)
		ORDER BY ta.equipment_id, ta.created_at, ta.id`,
		pq.Array(ids),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	agreements := make(map[string]*model.ScheduleAgreement)
	var agreementIDs []string
	for rows.Next() {
		ta, err := scanTypeAllocation(rows)
		if err != nil {
			return err
		}
		if li := ta.LineItem; li != nil && li.ScheduleAgreement != nil {
			sa := li.ScheduleAgreement
			if shared, ok := agreements[sa.ID]; ok {
				li.ScheduleAgreement = shared
			} else {
				agreements[sa.ID] = sa
				agreementIDs = append(agreementIDs, sa.ID)
			}
		}
		for _, e := range byID[ta.EquipmentID] {
			e.TypeAllocations = append(e.TypeAllocations, ta)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(agreementIDs) == 0 {
		return nil
	}
	return queryLoadAttachments(ctx, db, agreementIDs, agreements)
}

func queryLoadAttachments(ctx context.Context, db executor, ids []string, agreements map[string]*model.ScheduleAgreement) error {
	rows, err := db.QueryContext(ctx, `
		SELECT id, schedule_agreement_id, url, mime_type, created_at
		FROM schedule_agreement_attachments
		WHERE schedule_agreement_id = ANY($1)
		ORDER BY schedule_agreement_id, created_at, id`,
		pq.Array(ids),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return err
		}
		if sa, ok := agreements[a.ScheduleAgreementID]; ok {
			sa.Attachments = append(sa.Attachments, a)
		}
	}
	return rows.Err()
}
