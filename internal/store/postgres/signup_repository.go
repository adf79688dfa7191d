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

	"github.com/brewpair/brewpair/internal/roster"
)

// SignupRepository implements roster.SignupRepository
type SignupRepository struct {
	db *DB
}

// NewSignupRepository creates a new signup repository
func NewSignupRepository(db *DB) *SignupRepository {
	return &SignupRepository{db: db}
}

// Add records a signup for the current week. The conflict clause makes
// the insert report zero rows when the signup already exists.
func (r *SignupRepository) Add(ctx context.Context, tenantID, userID string) error {
	tag, err := r.db.pool.Exec(ctx, `
		INSERT INTO signups (tenant_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, user_id) DO NOTHING
	`, tenantID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add signup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return roster.ErrAlreadySignedUp
	}
	return nil
}

// Remove deletes a signup
func (r *SignupRepository) Remove(ctx context.Context, tenantID, userID string) error {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM signups WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove signup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return roster.ErrNotSignedUp
	}
	return nil
}

// Exists reports whether the user is signed up this week
func (r *SignupRepository) Exists(ctx context.Context, tenantID, userID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM signups WHERE tenant_id = $1 AND user_id = $2
		)
	`, tenantID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check signup: %w", err)
	}
	return exists, nil
}

// ListMembers returns the member profiles of everyone signed up, in
// signup order.
func (r *SignupRepository) ListMembers(ctx context.Context, tenantID string) ([]*roster.Member, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT m.tenant_id, m.user_id, m.display_name, m.region, m.penalty_expires_at,
			m.created_at, m.updated_at
		FROM signups s
		JOIN members m ON m.tenant_id = s.tenant_id AND m.user_id = s.user_id
		WHERE s.tenant_id = $1
		ORDER BY s.created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups: %w", err)
	}
	defer rows.Close()

	var members []*roster.Member
	for rows.Next() {
		var m roster.Member
		var region string
		var penaltyExpiresAt sql.NullTime

		if err := rows.Scan(
			&m.TenantID, &m.UserID, &m.DisplayName, &region, &penaltyExpiresAt,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signup member: %w", err)
		}
		m.Region = roster.Region(region)
		if penaltyExpiresAt.Valid {
			m.PenaltyExpiresAt = &penaltyExpiresAt.Time
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// Clear wipes the week's signups
func (r *SignupRepository) Clear(ctx context.Context, tenantID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM signups WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to clear signups: %w", err)
	}
	return nil
}
