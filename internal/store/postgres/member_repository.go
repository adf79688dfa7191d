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

	"github.com/brewpair/brewpair/internal/roster"
)

// MemberRepository implements roster.MemberRepository
type MemberRepository struct {
	db *DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Upsert inserts or updates a member profile
func (r *MemberRepository) Upsert(ctx context.Context, m *roster.Member) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO members (
			tenant_id, user_id, display_name, region, penalty_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			region = EXCLUDED.region,
			updated_at = EXCLUDED.updated_at
	`,
		m.TenantID, m.UserID, m.DisplayName, string(m.Region), m.PenaltyExpiresAt,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// Get retrieves a member profile
func (r *MemberRepository) Get(ctx context.Context, tenantID, userID string) (*roster.Member, error) {
	var m roster.Member
	var region string
	var penaltyExpiresAt sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		SELECT tenant_id, user_id, display_name, region, penalty_expires_at,
			created_at, updated_at
		FROM members
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID).Scan(
		&m.TenantID, &m.UserID, &m.DisplayName, &region, &penaltyExpiresAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, roster.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	m.Region = roster.Region(region)
	if penaltyExpiresAt.Valid {
		m.PenaltyExpiresAt = &penaltyExpiresAt.Time
	}
	return &m, nil
}

// SetPenalty overwrites the member's penalty expiry; nil clears it
func (r *MemberRepository) SetPenalty(ctx context.Context, tenantID, userID string, expiresAt *time.Time) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE members SET penalty_expires_at = $1, updated_at = $2
		WHERE tenant_id = $3 AND user_id = $4
	`, expiresAt, time.Now(), tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to set penalty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return roster.ErrMemberNotFound
	}
	return nil
}
