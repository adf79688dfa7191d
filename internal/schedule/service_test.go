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
	"context"
	"testing"

	"github.com/brewpair/brewpair/internal/audit"
)

// MockRepository is a simple in-memory implementation of Repository
type MockRepository struct {
	schedules map[string]*Schedule
}

func NewMockRepository() *MockRepository {
	return &MockRepository{schedules: make(map[string]*Schedule)}
}

func (m *MockRepository) Get(ctx context.Context, tenantID string) (*Schedule, error) {
	s, ok := m.schedules[tenantID]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockRepository) Upsert(ctx context.Context, s *Schedule) error {
	cp := *s
	m.schedules[s.TenantID] = &cp
	return nil
}

func (m *MockRepository) ListConfigured(ctx context.Context) ([]*Schedule, error) {
	var out []*Schedule
	for _, s := range m.schedules {
		if s.Configured() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRepository) MarkJobRun(ctx context.Context, tenantID string, job JobType, weekKey string) error {
	s, ok := m.schedules[tenantID]
	if !ok {
		return ErrScheduleNotFound
	}
	switch job {
	case JobSignupAnnouncement:
		s.LastSignupAnnouncementWeek = weekKey
	case JobMatching:
		s.LastMatchingWeek = weekKey
	case JobReminder:
		s.LastReminderWeek = weekKey
	case JobWeeklyReset:
		s.LastResetWeek = weekKey
	}
	return nil
}

func TestService_Upsert_MergesIntoExisting(t *testing.T) {
	repo := NewMockRepository()
	s := NewService(repo, audit.NopLogger{})
	ctx := context.Background()

	_, err := s.Upsert(ctx, "tenant-1", UpsertParams{
		TenantName:           "Gophers",
		DayOfWeek:            2,
		StartHour:            9,
		EndHour:              12,
		AnnouncementsChannel: "chan-announce",
		PairingsChannel:      "chan-pairs",
	}, "admin-1")
	if err != nil {
		t.Fatalf("failed to create schedule: %v", err)
	}

	// A second update that only touches the ping role keeps the window.
	updated, err := s.Upsert(ctx, "tenant-1", UpsertParams{
		DayOfWeek: Unset,
		StartHour: Unset,
		EndHour:   Unset,
		PingRole:  "role-ping",
	}, "admin-1")
	if err != nil {
		t.Fatalf("failed to update schedule: %v", err)
	}

	if updated.DayOfWeek != 2 || updated.StartHour != 9 || updated.EndHour != 12 {
		t.Errorf("window overrides lost on partial update: %+v", updated)
	}
	if updated.PingRole != "role-ping" {
		t.Errorf("expected ping role to be set, got %q", updated.PingRole)
	}
	if !updated.Configured() {
		t.Error("expected schedule to be configured")
	}
}

func TestService_Upsert_RejectsInvalidOverrides(t *testing.T) {
	repo := NewMockRepository()
	s := NewService(repo, audit.NopLogger{})
	ctx := context.Background()

	cases := []UpsertParams{
		{DayOfWeek: 7, StartHour: Unset, EndHour: Unset},
		{DayOfWeek: Unset, StartHour: 24, EndHour: Unset},
		{DayOfWeek: Unset, StartHour: Unset, EndHour: 0},
		{DayOfWeek: Unset, StartHour: 12, EndHour: 12},
	}
	for _, p := range cases {
		if _, err := s.Upsert(ctx, "tenant-1", p, "admin-1"); err == nil {
			t.Errorf("expected error for params %+v", p)
		}
	}
}

func TestService_Window_FallsBackWhenUnconfigured(t *testing.T) {
	repo := NewMockRepository()
	s := NewService(repo, audit.NopLogger{})

	w, err := s.Window(context.Background(), "unknown-tenant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.DayOfWeek != DefaultDayOfWeek || w.StartHour != DefaultStartHour || w.EndHour != DefaultEndHour {
		t.Errorf("expected default window, got %+v", w)
	}
}
