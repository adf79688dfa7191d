package report

import (
	"time"
)

// Status is a no-show report's lifecycle state. A report leaves pending
// exactly once, into one of the three terminal states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPenalized Status = "resolved_penalized"
	StatusDismissed Status = "resolved_dismissed"
	StatusExpired   Status = "expired"
)

// Outcome is a moderator's resolution choice.
type Outcome string

const (
	OutcomePenalized Outcome = "penalized"
	OutcomeDismissed Outcome = "dismissed"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == OutcomePenalized || o == OutcomeDismissed
}

// Report is a no-show report filed by one pairing participant about their
// assigned partner.
type Report struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	PairingID  string `json:"pairing_id"`
	ReporterID string `json:"reporter_id"`
	ReportedID string `json:"reported_id"`

	Status     Status     `json:"status"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Note       *string    `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
