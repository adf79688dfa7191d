package history

import (
	"context"
	"time"
)

// Repository defines the interface for history ledger storage
type Repository interface {
	// Append inserts records, silently skipping any that duplicate an
	// existing (tenant, members, week) row.
	Append(ctx context.Context, records []Record) error

	// Since returns records with weekOf >= from, newest first.
	Since(ctx context.Context, tenantID string, from time.Time) ([]Record, error)

	// DeleteWeek removes the given week's records, used when a forced
	// rematch rebuilds the current week.
	DeleteWeek(ctx context.Context, tenantID string, weekOf time.Time) error

	// CountByMember aggregates completed-chat counts for the leaderboard.
	CountByMember(ctx context.Context, tenantID string, limit int) ([]MemberCount, error)
}
