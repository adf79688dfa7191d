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

	"github.com/brewpair/brewpair/internal/pairing"
)

// PairingRepository implements pairing.Repository
type PairingRepository struct {
	db *DB
}

// NewPairingRepository creates a new pairing repository
func NewPairingRepository(db *DB) *PairingRepository {
	return &PairingRepository{db: db}
}

const pairingColumns = `id, tenant_id, member_a, member_b, member_c,
	slot_label, slot_ref, needs_coordination, completed_at, completion_method, created_at`

// CreateBatch inserts the week's pairings in one transaction
func (r *PairingRepository) CreateBatch(ctx context.Context, pairings []*pairing.Pairing) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range pairings {
		var method *string
		if p.Method != "" {
			m := string(p.Method)
			method = &m
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO pairings (
				id, tenant_id, member_a, member_b, member_c,
				slot_label, slot_ref, needs_coordination, completed_at, completion_method, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			p.ID, p.TenantID, p.MemberA, p.MemberB, p.MemberC,
			p.SlotLabel, p.SlotRef, p.NeedsCoordination, p.CompletedAt, method, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pairing: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Get retrieves a pairing by ID
func (r *PairingRepository) Get(ctx context.Context, tenantID, id string) (*pairing.Pairing, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+pairingColumns+`
		FROM pairings
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)

	p, err := scanPairing(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, pairing.ErrPairingNotFound
		}
		return nil, fmt.Errorf("failed to get pairing: %w", err)
	}
	return p, nil
}

// ForUser finds the pairing containing the user this week
func (r *PairingRepository) ForUser(ctx context.Context, tenantID, userID string) (*pairing.Pairing, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+pairingColumns+`
		FROM pairings
		WHERE tenant_id = $1 AND (member_a = $2 OR member_b = $2 OR member_c = $2)
	`, tenantID, userID)

	p, err := scanPairing(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, pairing.ErrPairingNotFound
		}
		return nil, fmt.Errorf("failed to get pairing for user: %w", err)
	}
	return p, nil
}

// List returns the week's pairings
func (r *PairingRepository) List(ctx context.Context, tenantID string) ([]*pairing.Pairing, error) {
	return r.list(ctx, `
		SELECT `+pairingColumns+`
		FROM pairings
		WHERE tenant_id = $1
		ORDER BY slot_label, created_at
	`, tenantID)
}

// Incomplete returns pairings that have not completed yet
func (r *PairingRepository) Incomplete(ctx context.Context, tenantID string) ([]*pairing.Pairing, error) {
	return r.list(ctx, `
		SELECT `+pairingColumns+`
		FROM pairings
		WHERE tenant_id = $1 AND completed_at IS NULL
		ORDER BY slot_label, created_at
	`, tenantID)
}

func (r *PairingRepository) list(ctx context.Context, query, tenantID string) ([]*pairing.Pairing, error) {
	rows, err := r.db.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairings: %w", err)
	}
	defer rows.Close()

	var pairings []*pairing.Pairing
	for rows.Next() {
		p, err := scanPairing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pairing: %w", err)
		}
		pairings = append(pairings, p)
	}
	return pairings, rows.Err()
}

// CompletedCount counts completed pairings this week
func (r *PairingRepository) CompletedCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM pairings
		WHERE tenant_id = $1 AND completed_at IS NOT NULL
	`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed pairings: %w", err)
	}
	return count, nil
}

// Complete sets completion only when the pairing is still incomplete.
// Zero affected rows means another writer got there first or the pairing
// does not exist; the caller distinguishes via Get.
func (r *PairingRepository) Complete(ctx context.Context, tenantID, id string, method pairing.Method, at time.Time) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE pairings SET completed_at = $1, completion_method = $2
		WHERE tenant_id = $3 AND id = $4 AND completed_at IS NULL
	`, at, string(method), tenantID, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete pairing: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear wipes the week's pairings
func (r *PairingRepository) Clear(ctx context.Context, tenantID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM pairings WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to clear pairings: %w", err)
	}
	return nil
}

func scanPairing(row pgx.Row) (*pairing.Pairing, error) {
	var p pairing.Pairing
	var memberC, slotRef, method sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.TenantID, &p.MemberA, &p.MemberB, &memberC,
		&p.SlotLabel, &slotRef, &p.NeedsCoordination, &completedAt, &method, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if memberC.Valid {
		p.MemberC = &memberC.String
	}
	if slotRef.Valid {
		p.SlotRef = &slotRef.String
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	if method.Valid {
		p.Method = pairing.Method(method.String)
	}
	return &p, nil
}
