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

package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/history"
	"github.com/brewpair/brewpair/internal/schedule"
)

var (
	ErrWindowClosed  = errors.New("signup window is closed")
	ErrInvalidRegion = errors.New("invalid timezone region")
)

// PenalizedError rejects a signup from a member with an active penalty.
type PenalizedError struct {
	ExpiresAt time.Time
}

func (e *PenalizedError) Error() string {
	return fmt.Sprintf("penalized until %s", e.ExpiresAt.Format("2006-01-02"))
}

// Service provides signup and roster business logic
type Service struct {
	members     MemberRepository
	signups     SignupRepository
	schedules   schedule.Repository
	historyRepo history.Repository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new roster service
func NewService(
	members MemberRepository,
	signups SignupRepository,
	schedules schedule.Repository,
	historyRepo history.Repository,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		members:     members,
		signups:     signups,
		schedules:   schedules,
		historyRepo: historyRepo,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// Join opts a member in for the current week. It rejects when the signup
// window is closed, the member is penalized, or they are already signed up.
func (s *Service) Join(ctx context.Context, tenantID, userID, displayName string, region Region) error {
	if !region.Valid() {
		return ErrInvalidRegion
	}

	now := s.now()
	if open, err := s.windowOpen(ctx, tenantID, now); err != nil {
		return err
	} else if !open {
		return ErrWindowClosed
	}

	member, err := s.members.Get(ctx, tenantID, userID)
	if err != nil && err != ErrMemberNotFound {
		return fmt.Errorf("failed to load member: %w", err)
	}
	if member != nil && member.Penalized(now) {
		return &PenalizedError{ExpiresAt: *member.PenaltyExpiresAt}
	}

	if err := s.addSignup(ctx, tenantID, userID, displayName, region, member); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSignupAdded,
		TenantID: tenantID,
		ActorID:  userID,
		Resource: "signup",
		Metadata: map[string]any{"region": string(region)},
	})
	return nil
}

// Leave withdraws the member's signup for the current week. Withdrawal is
// only permitted while the window is open.
func (s *Service) Leave(ctx context.Context, tenantID, userID string) error {
	if open, err := s.windowOpen(ctx, tenantID, s.now()); err != nil {
		return err
	} else if !open {
		return ErrWindowClosed
	}

	if err := s.signups.Remove(ctx, tenantID, userID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSignupRemoved,
		TenantID: tenantID,
		ActorID:  userID,
		Resource: "signup",
	})
	return nil
}

// AddSignup is the admin path: it bypasses the window check but still
// refuses duplicates.
func (s *Service) AddSignup(ctx context.Context, tenantID, userID, displayName string, region Region, actorID string) error {
	if !region.Valid() {
		return ErrInvalidRegion
	}

	member, err := s.members.Get(ctx, tenantID, userID)
	if err != nil && err != ErrMemberNotFound {
		return fmt.Errorf("failed to load member: %w", err)
	}

	if err := s.addSignup(ctx, tenantID, userID, displayName, region, member); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSignupAdded,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "signup",
		Metadata: map[string]any{"user_id": userID, "region": string(region)},
	})
	return nil
}

func (s *Service) addSignup(ctx context.Context, tenantID, userID, displayName string, region Region, existing *Member) error {
	now := s.now()
	member := existing
	if member == nil {
		member = &Member{
			TenantID:  tenantID,
			UserID:    userID,
			CreatedAt: now,
		}
	}
	member.DisplayName = displayName
	member.Region = region
	member.UpdatedAt = now

	if err := s.members.Upsert(ctx, member); err != nil {
		return fmt.Errorf("failed to save member profile: %w", err)
	}
	return s.signups.Add(ctx, tenantID, userID)
}

// ClearSignups wipes the current week's signup set (admin reset and the
// weekly reset both land here).
func (s *Service) ClearSignups(ctx context.Context, tenantID, actorID string) error {
	if err := s.signups.Clear(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to clear signups: %w", err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSignupsCleared,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "signup",
	})
	return nil
}

// Signups lists the member profiles of everyone signed up this week.
func (s *Service) Signups(ctx context.Context, tenantID string) ([]*Member, error) {
	return s.signups.ListMembers(ctx, tenantID)
}

// EligibleSignups lists signed-up members with active penalties filtered
// out. Liveness filtering against the platform happens in the scheduler.
func (s *Service) EligibleSignups(ctx context.Context, tenantID string) ([]*Member, error) {
	all, err := s.signups.ListMembers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	eligible := make([]*Member, 0, len(all))
	for _, m := range all {
		if !m.Penalized(now) {
			eligible = append(eligible, m)
		}
	}
	return eligible, nil
}

// Status summarizes a member's week: profile, opt-in state and penalty.
type Status struct {
	Member    *Member `json:"member,omitempty"`
	SignedUp  bool    `json:"signed_up"`
	Penalized bool    `json:"penalized"`
}

// Status reports the member's current-week state. An unknown member is a
// normal empty result, not an error.
func (s *Service) Status(ctx context.Context, tenantID, userID string) (*Status, error) {
	member, err := s.members.Get(ctx, tenantID, userID)
	if err != nil && err != ErrMemberNotFound {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}

	signedUp, err := s.signups.Exists(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check signup: %w", err)
	}

	st := &Status{Member: member, SignedUp: signedUp}
	if member != nil {
		st.Penalized = member.Penalized(s.now())
	}
	return st, nil
}

// Leaderboard returns completed-chat counts from the history ledger,
// most chats first.
func (s *Service) Leaderboard(ctx context.Context, tenantID string, limit int) ([]history.MemberCount, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.historyRepo.CountByMember(ctx, tenantID, limit)
}

func (s *Service) windowOpen(ctx context.Context, tenantID string, now time.Time) (bool, error) {
	sched, err := s.schedules.Get(ctx, tenantID)
	if err != nil && err != schedule.ErrScheduleNotFound {
		return false, fmt.Errorf("failed to load schedule: %w", err)
	}
	return schedule.ResolveWindow(sched).OpenAt(now), nil
}
