package roster

import (
	"time"
)

// Region buckets members by coarse timezone for matching affinity.
type Region string

const (
	RegionAmericas Region = "AMERICAS"
	RegionEMEA     Region = "EMEA"
	RegionAPAC     Region = "APAC"
)

// Regions lists every valid bucket in matching iteration order.
var Regions = []Region{RegionAmericas, RegionEMEA, RegionAPAC}

// Valid reports whether r is a known region bucket.
func (r Region) Valid() bool {
	switch r {
	case RegionAmericas, RegionEMEA, RegionAPAC:
		return true
	}
	return false
}

// Member is a tenant-scoped participant profile.
type Member struct {
	TenantID         string     `json:"tenant_id"`
	UserID           string     `json:"user_id"`
	DisplayName      string     `json:"display_name"`
	Region           Region     `json:"region"`
	PenaltyExpiresAt *time.Time `json:"penalty_expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Penalized reports whether the member carries an active no-show penalty
// at the given instant.
func (m *Member) Penalized(now time.Time) bool {
	return m.PenaltyExpiresAt != nil && m.PenaltyExpiresAt.After(now)
}
