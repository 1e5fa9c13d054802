package postgres

import (
	"database/sql"
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// equipmentScan holds the nullable destinations of equipmentColumns. The
// account side is nullable because it arrives through a LEFT JOIN.
type equipmentScan struct {
	e             model.Equipment
	year          sql.NullInt64
	accountID     sql.NullString
	accountNumber sql.NullString
	accountName   sql.NullString
}

func (s *equipmentScan) dest() []any {
	return []any{
		&s.e.ID,
		&s.e.AccountID,
		&s.e.UnitNumber,
		&s.e.VIN,
		&s.e.Make,
		&s.e.Model,
		&s.year,
		&s.e.EquipmentType,
		&s.e.Status,
		&s.e.CreatedAt,
		&s.e.UpdatedAt,
		&s.accountID,
		&s.accountNumber,
		&s.accountName,
	}
}

func (s *equipmentScan) equipment() *model.Equipment {
	e := s.e
	if s.year.Valid {
		y := int(s.year.Int64)
		e.Year = &y
	}
	if s.accountID.Valid {
		e.Account = &model.Account{
			ID:            s.accountID.String,
			AccountNumber: s.accountNumber.String,
			Name:          s.accountName.String,
		}
	}
	return &e
}

// scanEquipmentWithTotal scans total_count, equipmentColumns and
// telematicsColumns.
func scanEquipmentWithTotal(row scannable) (*model.Equipment, int, error) {
	var (
		total       int
		es          equipmentScan
		telematicID sql.NullString
		latitude    sql.NullFloat64
		longitude   sql.NullFloat64
		odometer    sql.NullFloat64
		lastPingAt  sql.NullTime
	)
	dest := append([]any{&total}, es.dest()...)
	dest = append(dest, &telematicID, &latitude, &longitude, &odometer, &lastPingAt)
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}

	e := es.equipment()
	if telematicID.Valid {
		e.Telematics = &model.Telematics{
			EquipmentID: telematicID.String,
			Latitude:    nullFloatPtr(latitude),
			Longitude:   nullFloatPtr(longitude),
			Odometer:    nullFloatPtr(odometer),
			LastPingAt:  nullTimeValue(lastPingAt),
		}
	}
	return e, total, nil
}

// scanPMScheduleWithTotal scans total_count, pmScheduleColumns and
// equipmentColumns.
func scanPMScheduleWithTotal(row scannable) (*model.PMSchedule, int, error) {
	var (
		total           int
		p               model.PMSchedule
		description     sql.NullString
		lastCompletedAt sql.NullTime
		nextDueAt       sql.NullTime
		es              equipmentScan
	)
	dest := []any{
		&total,
		&p.ID,
		&p.EquipmentID,
		&p.Kind,
		&description,
		&p.IntervalDays,
		&lastCompletedAt,
		&nextDueAt,
		&p.Status,
		&p.CreatedAt,
	}
	if err := row.Scan(append(dest, es.dest()...)...); err != nil {
		return nil, 0, err
	}

	p.Description = description.String
	p.LastCompletedAt = nullTimeValue(lastCompletedAt)
	p.NextDueAt = nullTimeValue(nextDueAt)
	p.Equipment = es.equipment()
	return &p, total, nil
}

// scanWorkorderWithTotal scans total_count, workorderColumns and
// equipmentColumns.
func scanWorkorderWithTotal(row scannable) (*model.Workorder, int, error) {
	var (
		total            int
		w                model.Workorder
		vendorID         sql.NullString
		serviceRequestID sql.NullString
		description      sql.NullString
		startAt          sql.NullTime
		endAt            sql.NullTime
		totalCost        sql.NullFloat64
		vendorRowID      sql.NullString
		vendorName       sql.NullString
		es               equipmentScan
	)
	dest := []any{
		&total,
		&w.ID,
		&w.Number,
		&w.EquipmentID,
		&vendorID,
		&serviceRequestID,
		&w.Priority,
		&w.Status,
		&description,
		&startAt,
		&endAt,
		&totalCost,
		&w.CreatedAt,
		&vendorRowID,
		&vendorName,
	}
	if err := row.Scan(append(dest, es.dest()...)...); err != nil {
		return nil, 0, err
	}

	w.VendorID = vendorID.String
	w.ServiceRequestID = serviceRequestID.String
	w.Description = description.String
	w.StartAt = nullTimeValue(startAt)
	w.EndAt = nullTimeValue(endAt)
	w.TotalCost = nullFloatPtr(totalCost)
	if vendorRowID.Valid {
		w.Vendor = &model.Vendor{ID: vendorRowID.String, Name: vendorName.String}
	}
	w.Equipment = es.equipment()
	return &w, total, nil
}

func scanIoTMapping(row scannable) (*model.EquipmentIoTDevice, error) {
	var (
		m        model.EquipmentIoTDevice
		d        model.IoTDevice
		vendorID sql.NullString
		vID      sql.NullString
		vName    sql.NullString
	)
	err := row.Scan(
		&m.ID,
		&m.EquipmentID,
		&m.DeviceID,
		&m.Active,
		&m.InstalledAt,
		&d.ID,
		&d.SerialNumber,
		&vendorID,
		&vID,
		&vName,
	)
	if err != nil {
		return nil, err
	}
	d.VendorID = vendorID.String
	if vID.Valid {
		d.Vendor = &model.Vendor{ID: vID.String, Name: vName.String}
	}
	m.Device = &d
	return &m, nil
}

func scanTypeAllocation(row scannable) (*model.TypeAllocation, error) {
	var (
		ta          model.TypeAllocation
		liID        sql.NullString
		liSAID      sql.NullString
		liDesc      sql.NullString
		saID        sql.NullString
		saMAID      sql.NullString
		saNumber    sql.NullString
		saTermType  sql.NullString
		saEndDate   sql.NullTime
		maID        sql.NullString
		maAccountID sql.NullString
		maNumber    sql.NullString
		maStartDate sql.NullTime
	)
	err := row.Scan(
		&ta.ID,
		&ta.EquipmentID,
		&ta.LineItemID,
		&liID,
		&liSAID,
		&liDesc,
		&saID,
		&saMAID,
		&saNumber,
		&saTermType,
		&saEndDate,
		&maID,
		&maAccountID,
		&maNumber,
		&maStartDate,
	)
	if err != nil {
		return nil, err
	}

	if !liID.Valid {
		return &ta, nil
	}
	ta.LineItem = &model.ScheduleLineItem{
		ID:                  liID.String,
		ScheduleAgreementID: liSAID.String,
		Description:         liDesc.String,
	}
	if !saID.Valid {
		return &ta, nil
	}
	sa := &model.ScheduleAgreement{
		ID:                saID.String,
		MasterAgreementID: saMAID.String,
		Number:            saNumber.String,
		TermType:          model.TermType(saTermType.String),
		EndDate:           nullTimeValue(saEndDate),
	}
	if maID.Valid {
		sa.MasterAgreement = &model.MasterAgreement{
			ID:        maID.String,
			AccountID: maAccountID.String,
			Number:    maNumber.String,
			StartDate: nullTimeValue(maStartDate),
		}
	}
	ta.LineItem.ScheduleAgreement = sa
	return &ta, nil
}

func scanAttachment(row scannable) (*model.Attachment, error) {
	var a model.Attachment
	if err := row.Scan(&a.ID, &a.ScheduleAgreementID, &a.URL, &a.MimeType, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// nullTimeValue converts a sql.NullTime to a *time.Time.
func nullTimeValue(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullFloatPtr converts a sql.NullFloat64 to a *float64.
func nullFloatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
