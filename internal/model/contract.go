package model

import "time"

// TermType is how a schedule agreement is financed.
type TermType string

const (
	TermFixed    TermType = "fixed"
	TermFloating TermType = "floating"
	TermTRAC     TermType = "trac"
	TermMonthly  TermType = "month_to_month"
)

// String returns the string representation of the term type.
func (t TermType) String() string {
	return string(t)
}

// MasterAgreement is the umbrella lease contract of an account.
type MasterAgreement struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Number    string     `json:"number"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// Attachment is a document stored against a schedule agreement.
type Attachment struct {
	ID                  string    `json:"id"`
	ScheduleAgreementID string    `json:"schedule_agreement_id"`
	URL                 string    `json:"url"`
	MimeType            string    `json:"mime_type"`
	CreatedAt           time.Time `json:"created_at"`
}

// ScheduleAgreement is one schedule under a master agreement.
type ScheduleAgreement struct {
	ID                string     `json:"id"`
	MasterAgreementID string     `json:"master_agreement_id"`
	Number            string     `json:"number"`
	TermType          TermType   `json:"term_type"`
	EndDate           *time.Time `json:"end_date,omitempty"`

	MasterAgreement *MasterAgreement `json:"master_agreement,omitempty"`
	Attachments     []*Attachment    `json:"attachments,omitempty"`
}

// ScheduleLineItem is one line of a schedule agreement.
type ScheduleLineItem struct {
	ID                  string             `json:"id"`
	ScheduleAgreementID string             `json:"schedule_agreement_id"`
	Description         string             `json:"description"`
	ScheduleAgreement   *ScheduleAgreement `json:"schedule_agreement,omitempty"`
}

// TypeAllocation assigns a unit to a schedule line item.
type TypeAllocation struct {
	ID          string            `json:"id"`
	EquipmentID string            `json:"equipment_id"`
	LineItemID  string            `json:"line_item_id"`
	LineItem    *ScheduleLineItem `json:"line_item,omitempty"`
}

// FirstAttachment returns the earliest attachment, nil when there is none.
func (s *ScheduleAgreement) FirstAttachment() *Attachment {
	if s == nil || len(s.Attachments) == 0 {
		return nil
	}
	return s.Attachments[0]
}
