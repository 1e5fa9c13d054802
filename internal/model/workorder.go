package model

import "time"

// Priority is the urgency of a workorder.
type Priority string

const (
	PriorityEmergency Priority = "emergency"
	PriorityHigh      Priority = "high"
	PriorityNormal    Priority = "normal"
	PriorityLow       Priority = "low"
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// IsValid checks whether the priority is a known value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityEmergency, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// WorkorderStatus is the state of a workorder.
type WorkorderStatus string

const (
	WorkorderOpen       WorkorderStatus = "open"
	WorkorderInProgress WorkorderStatus = "in_progress"
	WorkorderCompleted  WorkorderStatus = "completed"
	WorkorderCancelled  WorkorderStatus = "cancelled"
)

// String returns the string representation of the status.
func (s WorkorderStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s WorkorderStatus) IsValid() bool {
	switch s {
	case WorkorderOpen, WorkorderInProgress, WorkorderCompleted, WorkorderCancelled:
		return true
	}
	return false
}

// Workorder is a unit of repair work. Equipment (with its account) and
// Vendor are always loaded with the row.
type Workorder struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	EquipmentID      string          `json:"equipment_id"`
	VendorID         string          `json:"vendor_id,omitempty"`
	ServiceRequestID string          `json:"service_request_id,omitempty"`
	Priority         Priority        `json:"priority"`
	Status           WorkorderStatus `json:"status"`
	Description      string          `json:"description"`
	StartAt          *time.Time      `json:"start_at,omitempty"`
	EndAt            *time.Time      `json:"end_at,omitempty"`
	TotalCost        *float64        `json:"total_cost,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`

	Equipment *Equipment `json:"equipment,omitempty"`
	Vendor    *Vendor    `json:"vendor,omitempty"`
}
