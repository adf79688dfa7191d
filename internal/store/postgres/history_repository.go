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
	"fmt"
	"time"

	"github.com/brewpair/brewpair/internal/history"
)

// HistoryRepository implements history.Repository
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts records, silently skipping duplicates. member_c is the
// empty string rather than NULL so the unique constraint covers trios.
func (r *HistoryRepository) Append(ctx context.Context, records []history.Record) error {
	for _, rec := range records {
		memberC := ""
		if rec.MemberC != nil {
			memberC = *rec.MemberC
		}
		_, err := r.db.pool.Exec(ctx, `
			INSERT INTO history (tenant_id, member_a, member_b, member_c, week_of, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tenant_id, member_a, member_b, member_c, week_of) DO NOTHING
		`, rec.TenantID, rec.MemberA, rec.MemberB, memberC, rec.WeekOf, time.Now())
		if err != nil {
			return fmt.Errorf("failed to append history record: %w", err)
		}
	}
	return nil
}

// Since returns records with week_of >= from, newest first
func (r *HistoryRepository) Since(ctx context.Context, tenantID string, from time.Time) ([]history.Record, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT tenant_id, member_a, member_b, member_c, week_of
		FROM history
		WHERE tenant_id = $1 AND week_of >= $2
		ORDER BY week_of DESC
	`, tenantID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var rec history.Record
		var memberC string
		if err := rows.Scan(&rec.TenantID, &rec.MemberA, &rec.MemberB, &memberC, &rec.WeekOf); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if memberC != "" {
			rec.MemberC = &memberC
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteWeek removes the given week's records
func (r *HistoryRepository) DeleteWeek(ctx context.Context, tenantID string, weekOf time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM history WHERE tenant_id = $1 AND week_of = $2
	`, tenantID, weekOf)
	if err != nil {
		return fmt.Errorf("failed to delete week history: %w", err)
	}
	return nil
}

// CountByMember aggregates completed-chat counts for the leaderboard
func (r *HistoryRepository) CountByMember(ctx context.Context, tenantID string, limit int) ([]history.MemberCount, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT user_id, COUNT(*) AS chats FROM (
			SELECT member_a AS user_id, week_of FROM history WHERE tenant_id = $1
			UNION ALL
			SELECT member_b, week_of FROM history WHERE tenant_id = $1
			UNION ALL
			SELECT member_c, week_of FROM history WHERE tenant_id = $1 AND member_c <> ''
		) AS participants
		GROUP BY user_id
		ORDER BY chats DESC, user_id
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var counts []history.MemberCount
	for rows.Next() {
		var mc history.MemberCount
		if err := rows.Scan(&mc.UserID, &mc.Chats); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}
