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

package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/roster"
	"github.com/brewpair/brewpair/internal/schedule"
)

var (
	ErrSelfReport      = errors.New("cannot report yourself")
	ErrNoPairing       = errors.New("no pairing this week")
	ErrNotYourPartner  = errors.New("reported member is not your assigned partner")
	ErrInvalidOutcome  = errors.New("invalid resolution outcome")
	ErrNoActivePenalty = errors.New("no active penalty")
)

// Service provides the no-show report lifecycle and the penalty mechanism
// the matching engine respects.
type Service struct {
	repo         Repository
	pairings     pairing.Repository
	members      roster.MemberRepository
	auditLogger  audit.Logger
	penaltyWeeks int
	now          func() time.Time
}

// NewService creates a new report service
func NewService(
	repo Repository,
	pairings pairing.Repository,
	members roster.MemberRepository,
	auditLogger audit.Logger,
	penaltyWeeks int,
) *Service {
	return &Service{
		repo:         repo,
		pairings:     pairings,
		members:      members,
		auditLogger:  auditLogger,
		penaltyWeeks: penaltyWeeks,
		now:          time.Now,
	}
}

// File creates a pending no-show report after validating that the reporter
// has a pairing this week and the reported member is their partner. When a
// pending report for the exact same tuple already exists, it is returned
// with created=false instead of a duplicate row.
func (s *Service) File(ctx context.Context, tenantID, reporterID, reportedID string) (*Report, bool, error) {
	if reporterID == reportedID {
		return nil, false, ErrSelfReport
	}

	p, err := s.pairings.ForUser(ctx, tenantID, reporterID)
	if err != nil {
		if err == pairing.ErrPairingNotFound {
			return nil, false, ErrNoPairing
		}
		return nil, false, fmt.Errorf("failed to load pairing: %w", err)
	}
	if !p.Has(reportedID) {
		return nil, false, ErrNotYourPartner
	}

	existing, err := s.repo.FindPending(ctx, tenantID, p.ID, reporterID, reportedID)
	if err == nil {
		return existing, false, nil
	}
	if err != ErrReportNotFound {
		return nil, false, fmt.Errorf("failed to check existing report: %w", err)
	}

	r := &Report{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		PairingID:  p.ID,
		ReporterID: reporterID,
		ReportedID: reportedID,
		Status:     StatusPending,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, false, fmt.Errorf("failed to create report: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeReportFiled,
		TenantID: tenantID,
		ActorID:  reporterID,
		Resource: r.ID,
		Metadata: map[string]any{"reported_id": reportedID, "pairing_id": p.ID},
	})
	return r, true, nil
}

// GetPending fetches a report that is still pending.
func (s *Service) GetPending(ctx context.Context, tenantID, id string) (*Report, error) {
	return s.repo.GetPending(ctx, tenantID, id)
}

// Penalize applies the no-show penalty to a member without the moderator
// quoting a report ID. When a pending report about the member exists, the
// newest one is resolved as penalized so it does not dangle until the
// weekly expiry; otherwise the penalty is applied directly.
func (s *Service) Penalize(ctx context.Context, tenantID, userID, actorID string) (time.Time, error) {
	r, err := s.repo.LatestPendingForUser(ctx, tenantID, userID)
	if err != nil && err != ErrReportNotFound {
		return time.Time{}, fmt.Errorf("failed to look up pending report: %w", err)
	}
	if err == nil {
		_, rerr := s.Resolve(ctx, tenantID, r.ID, OutcomePenalized, actorID, "")
		switch rerr {
		case nil:
			member, merr := s.members.Get(ctx, tenantID, userID)
			if merr != nil {
				return time.Time{}, fmt.Errorf("failed to load member: %w", merr)
			}
			return *member.PenaltyExpiresAt, nil
		case ErrReportNotPending, ErrReportNotFound:
			// A concurrent resolution closed the report; penalize directly.
		default:
			return time.Time{}, rerr
		}
	}
	return s.ApplyPenalty(ctx, tenantID, userID, actorID)
}

// PendingCount counts pending reports this week.
func (s *Service) PendingCount(ctx context.Context, tenantID string) (int, error) {
	return s.repo.PendingCount(ctx, tenantID)
}

// Resolve transitions a pending report to a terminal state. The penalized
// outcome additionally applies the no-show penalty to the reported member.
// A report that already left pending yields ErrReportNotPending.
func (s *Service) Resolve(ctx context.Context, tenantID, id string, outcome Outcome, reviewerID, note string) (*Report, error) {
	if !outcome.Valid() {
		return nil, ErrInvalidOutcome
	}

	r, err := s.repo.GetPending(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	status := StatusDismissed
	if outcome == OutcomePenalized {
		status = StatusPenalized
	}

	won, err := s.repo.Resolve(ctx, tenantID, id, status, reviewerID, note, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve report: %w", err)
	}
	if !won {
		// A concurrent resolution got there first.
		return nil, ErrReportNotPending
	}

	if outcome == OutcomePenalized {
		if _, err := s.ApplyPenalty(ctx, tenantID, r.ReportedID, reviewerID); err != nil {
			return nil, err
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeReportResolved,
		TenantID: tenantID,
		ActorID:  reviewerID,
		Resource: id,
		Metadata: map[string]any{"outcome": string(outcome)},
	})

	r.Status = status
	r.ReviewedBy = &reviewerID
	at := s.now()
	r.ReviewedAt = &at
	if note != "" {
		r.Note = &note
	}
	return r, nil
}

// ApplyPenalty makes the member ineligible to sign up or be matched until
// now + penaltyWeeks. Reapplying resets the expiry; penalties do not stack.
func (s *Service) ApplyPenalty(ctx context.Context, tenantID, userID, actorID string) (time.Time, error) {
	expiresAt := schedule.AddWeeks(s.now(), s.penaltyWeeks)
	if err := s.members.SetPenalty(ctx, tenantID, userID, &expiresAt); err != nil {
		return time.Time{}, fmt.Errorf("failed to apply penalty: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePenaltyApplied,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: userID,
		Metadata: map[string]any{"expires_at": expiresAt},
	})
	return expiresAt, nil
}

// RemovePenalty clears an active penalty; ErrNoActivePenalty when the
// member has none.
func (s *Service) RemovePenalty(ctx context.Context, tenantID, userID, actorID string) error {
	member, err := s.members.Get(ctx, tenantID, userID)
	if err != nil {
		if err == roster.ErrMemberNotFound {
			return ErrNoActivePenalty
		}
		return fmt.Errorf("failed to load member: %w", err)
	}
	if member.PenaltyExpiresAt == nil {
		return ErrNoActivePenalty
	}

	if err := s.members.SetPenalty(ctx, tenantID, userID, nil); err != nil {
		return fmt.Errorf("failed to remove penalty: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePenaltyRemoved,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: userID,
	})
	return nil
}

// ExpireAllPending bulk-expires every pending report at the weekly reset,
// so no report lives across a week boundary unresolved.
func (s *Service) ExpireAllPending(ctx context.Context, tenantID string) (int64, error) {
	n, err := s.repo.ExpireAllPending(ctx, tenantID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending reports: %w", err)
	}
	if n > 0 {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeReportsExpired,
			TenantID: tenantID,
			Resource: "reports",
			Metadata: map[string]any{"expired": n},
		})
	}
	return n, nil
}
