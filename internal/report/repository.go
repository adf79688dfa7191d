package report

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReportNotFound   = errors.New("pending report not found")
	ErrReportNotPending = errors.New("report is not pending")
)

// Repository defines the interface for no-show report storage
type Repository interface {
	Create(ctx context.Context, r *Report) error

	// GetPending fetches a report only while it is pending;
	// ErrReportNotFound otherwise.
	GetPending(ctx context.Context, tenantID, id string) (*Report, error)

	// FindPending looks up the pending report for an exact
	// (pairing, reporter, reported) tuple; ErrReportNotFound when none.
	FindPending(ctx context.Context, tenantID, pairingID, reporterID, reportedID string) (*Report, error)

	// LatestPendingForUser finds the newest pending report about a user.
	LatestPendingForUser(ctx context.Context, tenantID, reportedID string) (*Report, error)

	// Resolve is a conditioned write guarded on status = pending; it
	// reports whether this call performed the transition.
	Resolve(ctx context.Context, tenantID, id string, status Status, reviewedBy, note string, at time.Time) (bool, error)

	// ExpireAllPending bulk-transitions every pending report to expired,
	// returning how many rows changed.
	ExpireAllPending(ctx context.Context, tenantID string, at time.Time) (int64, error)

	PendingCount(ctx context.Context, tenantID string) (int, error)
}
