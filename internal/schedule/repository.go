package schedule

import (
	"context"
	"errors"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
)

// Repository defines the interface for tenant schedule storage
type Repository interface {
	Get(ctx context.Context, tenantID string) (*Schedule, error)
	Upsert(ctx context.Context, s *Schedule) error

	// ListConfigured enumerates every tenant that completed setup, for
	// scheduler iteration.
	ListConfigured(ctx context.Context) ([]*Schedule, error)

	// MarkJobRun persists the once-per-week marker for a scheduled job.
	MarkJobRun(ctx context.Context, tenantID string, job JobType, weekKey string) error
}
