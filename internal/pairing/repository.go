package pairing

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPairingNotFound  = errors.New("pairing not found")
	ErrAlreadyCompleted = errors.New("pairing already completed")
)

// Repository defines the interface for current-week pairing storage
type Repository interface {
	CreateBatch(ctx context.Context, pairings []*Pairing) error
	Get(ctx context.Context, tenantID, id string) (*Pairing, error)

	// ForUser finds the pairing containing userID this week;
	// ErrPairingNotFound when they have none.
	ForUser(ctx context.Context, tenantID, userID string) (*Pairing, error)

	List(ctx context.Context, tenantID string) ([]*Pairing, error)
	Incomplete(ctx context.Context, tenantID string) ([]*Pairing, error)
	CompletedCount(ctx context.Context, tenantID string) (int, error)

	// Complete is a conditioned write: it sets completion only when the
	// pairing is not yet completed and reports whether this call won.
	Complete(ctx context.Context, tenantID, id string, method Method, at time.Time) (bool, error)

	Clear(ctx context.Context, tenantID string) error
}
