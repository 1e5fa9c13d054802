package model

import (
	"math"
	"time"
)

// ScheduleKind distinguishes preventive maintenance from DOT inspections.
type ScheduleKind string

const (
	SchedulePM  ScheduleKind = "pm"
	ScheduleDOT ScheduleKind = "dot"
)

// String returns the string representation of the kind.
func (k ScheduleKind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k ScheduleKind) IsValid() bool {
	return k == SchedulePM || k == ScheduleDOT
}

// ScheduleStatus is the state of the current cycle of a schedule.
type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleSkipped   ScheduleStatus = "skipped"
)

// DueStatus is the freshness label of a schedule relative to now.
type DueStatus string

const (
	DueOverdue DueStatus = "overdue"
	DueSoon    DueStatus = "due_soon"
	DueOK      DueStatus = "ok"
)

// DueSoonWindow is how far ahead a schedule counts as due soon.
const DueSoonWindow = 30 * 24 * time.Hour

// PMSchedule is a recurring PM service or DOT inspection of one unit.
// Equipment (with its account) is always loaded with the row.
type PMSchedule struct {
	ID              string         `json:"id"`
	EquipmentID     string         `json:"equipment_id"`
	Kind            ScheduleKind   `json:"kind"`
	Description     string         `json:"description"`
	IntervalDays    int            `json:"interval_days"`
	LastCompletedAt *time.Time     `json:"last_completed_at,omitempty"`
	NextDueAt       *time.Time     `json:"next_due_at,omitempty"`
	Status          ScheduleStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`

	Equipment *Equipment `json:"equipment,omitempty"`
}

// DueStatus classifies the schedule at now. Completed cycles are never
// overdue. ok is false when the schedule has no due date.
func (p *PMSchedule) DueStatus(now time.Time) (DueStatus, bool) {
	if p.NextDueAt == nil {
		return "", false
	}
	switch {
	case p.Status == ScheduleCompleted:
		return DueOK, true
	case p.NextDueAt.Before(now):
		return DueOverdue, true
	case p.NextDueAt.Before(now.Add(DueSoonWindow)):
		return DueSoon, true
	}
	return DueOK, true
}

// DaysUntilDue returns whole days from now to the due date, negative when
// overdue. ok is false when the schedule has no due date.
func (p *PMSchedule) DaysUntilDue(now time.Time) (int, bool) {
	if p.NextDueAt == nil {
		return 0, false
	}
	return int(math.Floor(p.NextDueAt.Sub(now).Hours() / 24)), true
}

// ServiceRequestType classifies a service request.
type ServiceRequestType string

const (
	RequestERS    ServiceRequestType = "ers"
	RequestRepair ServiceRequestType = "repair"
	RequestTire   ServiceRequestType = "tire"
)

// ServiceRequestStatus is the state of a service request.
type ServiceRequestStatus string

const (
	RequestOpen       ServiceRequestStatus = "open"
	RequestInProgress ServiceRequestStatus = "in_progress"
	RequestCompleted  ServiceRequestStatus = "completed"
	RequestCancelled  ServiceRequestStatus = "cancelled"
)

// ServiceRequest is a roadside (ERS) or shop request raised for a unit.
type ServiceRequest struct {
	ID          string               `json:"id"`
	EquipmentID string               `json:"equipment_id"`
	Type        ServiceRequestType   `json:"type"`
	Status      ServiceRequestStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}
