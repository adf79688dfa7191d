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
	"fmt"
	"time"

	"github.com/brewpair/brewpair/internal/audit"
)

// Service provides tenant schedule management
type Service struct {
	repo        Repository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new schedule service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Get retrieves a tenant's schedule
func (s *Service) Get(ctx context.Context, tenantID string) (*Schedule, error) {
	return s.repo.Get(ctx, tenantID)
}

// Window resolves the tenant's signup window, falling back to the default
// window when the tenant has no (or a corrupt) schedule.
func (s *Service) Window(ctx context.Context, tenantID string) (Window, error) {
	sched, err := s.repo.Get(ctx, tenantID)
	if err != nil {
		if err == ErrScheduleNotFound {
			return ResolveWindow(nil), nil
		}
		return Window{}, err
	}
	return ResolveWindow(sched), nil
}

// UpsertParams carries an admin schedule update. Window fields left at
// Unset keep their stored value.
type UpsertParams struct {
	TenantName           string
	DayOfWeek            int
	StartHour            int
	EndHour              int
	AnnouncementsChannel string
	PairingsChannel      string
	ModeratorRole        string
	PingRole             string
}

// Upsert creates or updates a tenant's schedule. Explicit window overrides
// are validated strictly; only stored data gets the lenient resolver
// treatment.
func (s *Service) Upsert(ctx context.Context, tenantID string, p UpsertParams, actorID string) (*Schedule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	if p.DayOfWeek != Unset && (p.DayOfWeek < 0 || p.DayOfWeek > 6) {
		return nil, fmt.Errorf("day_of_week must be in 0..6")
	}
	if p.StartHour != Unset && (p.StartHour < 0 || p.StartHour > 23) {
		return nil, fmt.Errorf("start_hour must be in 0..23")
	}
	if p.EndHour != Unset && (p.EndHour < 1 || p.EndHour > 23) {
		return nil, fmt.Errorf("end_hour must be in 1..23")
	}
	if p.StartHour != Unset && p.EndHour != Unset && p.EndHour <= p.StartHour {
		return nil, fmt.Errorf("end_hour must be after start_hour")
	}

	now := s.now()
	sched, err := s.repo.Get(ctx, tenantID)
	if err == ErrScheduleNotFound {
		sched = &Schedule{
			TenantID:  tenantID,
			DayOfWeek: Unset,
			StartHour: Unset,
			EndHour:   Unset,
			CreatedAt: now,
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	if p.TenantName != "" {
		sched.TenantName = p.TenantName
	}
	if p.DayOfWeek != Unset {
		sched.DayOfWeek = p.DayOfWeek
	}
	if p.StartHour != Unset {
		sched.StartHour = p.StartHour
	}
	if p.EndHour != Unset {
		sched.EndHour = p.EndHour
	}
	if p.AnnouncementsChannel != "" {
		sched.AnnouncementsChannel = p.AnnouncementsChannel
	}
	if p.PairingsChannel != "" {
		sched.PairingsChannel = p.PairingsChannel
	}
	if p.ModeratorRole != "" {
		sched.ModeratorRole = p.ModeratorRole
	}
	if p.PingRole != "" {
		sched.PingRole = p.PingRole
	}
	sched.UpdatedAt = now

	if err := s.repo.Upsert(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeScheduleUpdated,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "schedule",
	})

	return sched, nil
}
