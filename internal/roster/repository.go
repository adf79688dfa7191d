package roster

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrAlreadySignedUp = errors.New("already signed up this week")
	ErrNotSignedUp     = errors.New("not signed up this week")
)

// MemberRepository defines the interface for member profile storage
type MemberRepository interface {
	Upsert(ctx context.Context, m *Member) error
	Get(ctx context.Context, tenantID, userID string) (*Member, error)

	// SetPenalty overwrites the member's penalty expiry; nil clears it.
	SetPenalty(ctx context.Context, tenantID, userID string, expiresAt *time.Time) error
}

// SignupRepository defines the interface for current-week signup storage
type SignupRepository interface {
	// Add records a signup; ErrAlreadySignedUp when the (tenant, user)
	// row already exists.
	Add(ctx context.Context, tenantID, userID string) error

	// Remove deletes a signup; ErrNotSignedUp when no row existed.
	Remove(ctx context.Context, tenantID, userID string) error

	Exists(ctx context.Context, tenantID, userID string) (bool, error)

	// ListMembers returns the member profiles of everyone signed up.
	ListMembers(ctx context.Context, tenantID string) ([]*Member, error)

	Clear(ctx context.Context, tenantID string) error
}
