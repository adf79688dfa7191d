package pairing

import (
	"time"
)

// Method says how a pairing was completed.
type Method string

const (
	MethodManual   Method = "manual"
	MethodPresence Method = "presence"
)

// Valid reports whether m is a known completion method.
func (m Method) Valid() bool {
	return m == MethodManual || m == MethodPresence
}

// Pairing is one current-week match of two (or, for a single absorbed
// remainder, three) members with an assigned slot.
type Pairing struct {
	ID       string  `json:"id"`
	TenantID string  `json:"tenant_id"`
	MemberA  string  `json:"member_a"`
	MemberB  string  `json:"member_b"`
	MemberC  *string `json:"member_c,omitempty"`

	SlotLabel string `json:"slot_label"`

	// SlotRef is the resolved platform resource for the label; nil when
	// resolution failed or was ambiguous, which disables presence-based
	// completion for this pairing.
	SlotRef           *string `json:"slot_ref,omitempty"`
	NeedsCoordination bool    `json:"needs_coordination"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Method      Method     `json:"completion_method,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Members returns all members of the pairing.
func (p *Pairing) Members() []string {
	m := []string{p.MemberA, p.MemberB}
	if p.MemberC != nil {
		m = append(m, *p.MemberC)
	}
	return m
}

// Has reports whether userID belongs to the pairing.
func (p *Pairing) Has(userID string) bool {
	for _, m := range p.Members() {
		if m == userID {
			return true
		}
	}
	return false
}

// Completed reports whether the pairing has been closed out.
func (p *Pairing) Completed() bool {
	return p.CompletedAt != nil
}
