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

package schedule

import (
	"time"
)

// Unset marks a schedule field with no explicit override. The window
// resolver substitutes the compiled-in default for it.
const Unset = -1

// Schedule holds a tenant's signup window configuration together with the
// platform references the integration layer needs and the per-week job
// markers the weekly scheduler uses for idempotency.
type Schedule struct {
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`

	// Signup window overrides; Unset falls back to the default window.
	DayOfWeek int `json:"day_of_week"`
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`

	// Platform references, opaque to the core.
	AnnouncementsChannel string `json:"announcements_channel"`
	PairingsChannel      string `json:"pairings_channel"`
	ModeratorRole        string `json:"moderator_role"`
	PingRole             string `json:"ping_role"`

	// Last week each scheduled job ran, as a week key (ISO date of the
	// week start). Empty when the job never ran.
	LastSignupAnnouncementWeek string `json:"-"`
	LastMatchingWeek           string `json:"-"`
	LastReminderWeek           string `json:"-"`
	LastResetWeek              string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Configured reports whether the tenant has completed setup. Unconfigured
// tenants are skipped by the weekly scheduler.
func (s *Schedule) Configured() bool {
	return s != nil && s.AnnouncementsChannel != "" && s.PairingsChannel != ""
}

// JobType identifies a once-per-week scheduled job.
type JobType string

const (
	JobSignupAnnouncement JobType = "signup_announcement"
	JobMatching           JobType = "matching"
	JobReminder           JobType = "reminder"
	JobWeeklyReset        JobType = "weekly_reset"
)

// LastRunWeek returns the persisted marker for the given job.
func (s *Schedule) LastRunWeek(job JobType) string {
	switch job {
	case JobSignupAnnouncement:
		return s.LastSignupAnnouncementWeek
	case JobMatching:
		return s.LastMatchingWeek
	case JobReminder:
		return s.LastReminderWeek
	case JobWeeklyReset:
		return s.LastResetWeek
	}
	return ""
}
