// Copyright 2026 The Brewpair Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brewpair/brewpair/internal/report"
)

// ReportRepository implements report.Repository
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, tenant_id, pairing_id, reporter_id, reported_id,
	status, reviewed_by, reviewed_at, note, created_at`

// Create inserts a new pending report
func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO reports (
			id, tenant_id, pairing_id, reporter_id, reported_id,
			status, reviewed_by, reviewed_at, note, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rep.ID, rep.TenantID, rep.PairingID, rep.ReporterID, rep.ReportedID,
		string(rep.Status), rep.ReviewedBy, rep.ReviewedAt, rep.Note, rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// GetPending fetches a report only while it is pending
func (r *ReportRepository) GetPending(ctx context.Context, tenantID, id string) (*report.Report, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE tenant_id = $1 AND id = $2 AND status = 'pending'
	`, tenantID, id)

	return r.scanOne(row)
}

// FindPending looks up the pending report for an exact tuple
func (r *ReportRepository) FindPending(ctx context.Context, tenantID, pairingID, reporterID, reportedID string) (*report.Report, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE tenant_id = $1 AND pairing_id = $2 AND reporter_id = $3
			AND reported_id = $4 AND status = 'pending'
	`, tenantID, pairingID, reporterID, reportedID)

	return r.scanOne(row)
}

// LatestPendingForUser finds the newest pending report about a user
func (r *ReportRepository) LatestPendingForUser(ctx context.Context, tenantID, reportedID string) (*report.Report, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE tenant_id = $1 AND reported_id = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, reportedID)

	return r.scanOne(row)
}

// Resolve transitions a pending report to a terminal status; zero
// affected rows means the report already left pending.
func (r *ReportRepository) Resolve(ctx context.Context, tenantID, id string, status report.Status, reviewedBy, note string, at time.Time) (bool, error) {
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE reports SET status = $1, reviewed_by = $2, reviewed_at = $3, note = $4
		WHERE tenant_id = $5 AND id = $6 AND status = 'pending'
	`, string(status), reviewedBy, at, notePtr, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("failed to resolve report: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireAllPending bulk-expires every pending report
func (r *ReportRepository) ExpireAllPending(ctx context.Context, tenantID string, at time.Time) (int64, error) {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE reports SET status = $1, reviewed_at = $2
		WHERE tenant_id = $3 AND status = 'pending'
	`, string(report.StatusExpired), at, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to expire reports: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PendingCount counts pending reports
func (r *ReportRepository) PendingCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM reports WHERE tenant_id = $1 AND status = 'pending'
	`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending reports: %w", err)
	}
	return count, nil
}

func (r *ReportRepository) scanOne(row pgx.Row) (*report.Report, error) {
	var rep report.Report
	var status string
	var reviewedBy, note sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&rep.ID, &rep.TenantID, &rep.PairingID, &rep.ReporterID, &rep.ReportedID,
		&status, &reviewedBy, &reviewedAt, &note, &rep.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, report.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	rep.Status = report.Status(status)
	if reviewedBy.Valid {
		rep.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		rep.ReviewedAt = &reviewedAt.Time
	}
	if note.Valid {
		rep.Note = &note.String
	}
	return &rep, nil
}
