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

	"github.com/jackc/pgx/v5"

	"github.com/brewpair/brewpair/internal/schedule"
)

// ScheduleRepository implements schedule.Repository
type ScheduleRepository struct {
	db *DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `tenant_id, tenant_name, day_of_week, start_hour, end_hour,
	announcements_channel, pairings_channel, moderator_role, ping_role,
	last_signup_announcement_week, last_matching_week, last_reminder_week, last_reset_week,
	created_at, updated_at`

// Get retrieves a tenant's schedule
func (r *ScheduleRepository) Get(ctx context.Context, tenantID string) (*schedule.Schedule, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM tenant_schedules
		WHERE tenant_id = $1
	`, tenantID)

	s, err := scanSchedule(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, schedule.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

// Upsert inserts or replaces a tenant's schedule
func (r *ScheduleRepository) Upsert(ctx context.Context, s *schedule.Schedule) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenant_schedules (
			tenant_id, tenant_name, day_of_week, start_hour, end_hour,
			announcements_channel, pairings_channel, moderator_role, ping_role,
			last_signup_announcement_week, last_matching_week, last_reminder_week, last_reset_week,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tenant_id) DO UPDATE SET
			tenant_name = EXCLUDED.tenant_name,
			day_of_week = EXCLUDED.day_of_week,
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			announcements_channel = EXCLUDED.announcements_channel,
			pairings_channel = EXCLUDED.pairings_channel,
			moderator_role = EXCLUDED.moderator_role,
			ping_role = EXCLUDED.ping_role,
			updated_at = EXCLUDED.updated_at
	`,
		s.TenantID, s.TenantName, s.DayOfWeek, s.StartHour, s.EndHour,
		s.AnnouncementsChannel, s.PairingsChannel, s.ModeratorRole, s.PingRole,
		s.LastSignupAnnouncementWeek, s.LastMatchingWeek, s.LastReminderWeek, s.LastResetWeek,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule: %w", err)
	}
	return nil
}

// ListConfigured enumerates tenants that completed setup
func (r *ScheduleRepository) ListConfigured(ctx context.Context) ([]*schedule.Schedule, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM tenant_schedules
		WHERE announcements_channel <> '' AND pairings_channel <> ''
		ORDER BY tenant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*schedule.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// MarkJobRun persists the once-per-week marker for a scheduled job
func (r *ScheduleRepository) MarkJobRun(ctx context.Context, tenantID string, job schedule.JobType, weekKey string) error {
	var column string
	switch job {
	case schedule.JobSignupAnnouncement:
		column = "last_signup_announcement_week"
	case schedule.JobMatching:
		column = "last_matching_week"
	case schedule.JobReminder:
		column = "last_reminder_week"
	case schedule.JobWeeklyReset:
		column = "last_reset_week"
	default:
		return fmt.Errorf("unknown job type %q", job)
	}

	tag, err := r.db.pool.Exec(ctx, `
		UPDATE tenant_schedules SET `+column+` = $1, updated_at = $2
		WHERE tenant_id = $3
	`, weekKey, time.Now(), tenantID)
	if err != nil {
		return fmt.Errorf("failed to mark job run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrScheduleNotFound
	}
	return nil
}

func scanSchedule(row pgx.Row) (*schedule.Schedule, error) {
	var s schedule.Schedule
	err := row.Scan(
		&s.TenantID, &s.TenantName, &s.DayOfWeek, &s.StartHour, &s.EndHour,
		&s.AnnouncementsChannel, &s.PairingsChannel, &s.ModeratorRole, &s.PingRole,
		&s.LastSignupAnnouncementWeek, &s.LastMatchingWeek, &s.LastReminderWeek, &s.LastResetWeek,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
