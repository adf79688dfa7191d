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

package pairing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/history"
	"github.com/brewpair/brewpair/internal/matching"
	"github.com/brewpair/brewpair/internal/schedule"
)

var (
	ErrSelfPairing   = errors.New("cannot pair a member with themselves")
	ErrInvalidMethod = errors.New("invalid completion method")
)

// Service provides pairing lifecycle logic: creation from matching output,
// manual creation, and the guarded completion both the explicit and the
// presence path converge on.
type Service struct {
	repo        Repository
	historyRepo history.Repository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new pairing service
func NewService(repo Repository, historyRepo history.Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		historyRepo: historyRepo,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// CreateFromMatch persists a matching run's output as this week's pairings.
// The whole set is computed before any persistence, so partial sets are
// never visible.
func (s *Service) CreateFromMatch(ctx context.Context, tenantID string, pairs []matching.Pair, slotRefs map[string]string) ([]*Pairing, error) {
	now := s.now()
	pairings := make([]*Pairing, 0, len(pairs))
	for _, p := range pairs {
		pairing := &Pairing{
			ID:                uuid.NewString(),
			TenantID:          tenantID,
			MemberA:           p.MemberA,
			MemberB:           p.MemberB,
			MemberC:           p.MemberC,
			SlotLabel:         p.SlotLabel,
			NeedsCoordination: p.NeedsCoordination,
			CreatedAt:         now,
		}
		if ref, ok := slotRefs[p.SlotLabel]; ok {
			pairing.SlotRef = &ref
		}
		pairings = append(pairings, pairing)
	}

	if err := s.repo.CreateBatch(ctx, pairings); err != nil {
		return nil, fmt.Errorf("failed to persist pairings: %w", err)
	}
	return pairings, nil
}

// CreateManual creates a single pairing by operator action.
func (s *Service) CreateManual(ctx context.Context, tenantID, memberA, memberB string, memberC *string, slotLabel string, slotRef *string, actorID string) (*Pairing, error) {
	if memberA == memberB {
		return nil, ErrSelfPairing
	}
	if memberC != nil && (*memberC == memberA || *memberC == memberB) {
		return nil, ErrSelfPairing
	}

	p := &Pairing{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		MemberA:   memberA,
		MemberB:   memberB,
		MemberC:   memberC,
		SlotLabel: slotLabel,
		SlotRef:   slotRef,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateBatch(ctx, []*Pairing{p}); err != nil {
		return nil, fmt.Errorf("failed to create pairing: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePairingCreated,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: p.ID,
		Metadata: map[string]any{"members": p.Members(), "slot_label": slotLabel},
	})
	return p, nil
}

// Get retrieves a pairing by ID.
func (s *Service) Get(ctx context.Context, tenantID, id string) (*Pairing, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// ForUser retrieves the pairing containing userID this week.
func (s *Service) ForUser(ctx context.Context, tenantID, userID string) (*Pairing, error) {
	return s.repo.ForUser(ctx, tenantID, userID)
}

// List returns all current-week pairings.
func (s *Service) List(ctx context.Context, tenantID string) ([]*Pairing, error) {
	return s.repo.List(ctx, tenantID)
}

// Incomplete returns the current-week pairings with no completion yet.
func (s *Service) Incomplete(ctx context.Context, tenantID string) ([]*Pairing, error) {
	return s.repo.Incomplete(ctx, tenantID)
}

// CompletedCount counts completed pairings this week.
func (s *Service) CompletedCount(ctx context.Context, tenantID string) (int, error) {
	return s.repo.CompletedCount(ctx, tenantID)
}

// Clear drops all current-week pairings.
func (s *Service) Clear(ctx context.Context, tenantID string) error {
	return s.repo.Clear(ctx, tenantID)
}

// Complete closes out a pairing. The write is conditioned on "not yet
// completed": a racing second writer observes the no-op and gets the
// already-completed record back, never an error. The winning writer also
// appends exactly one deduplicated history record for this week.
func (s *Service) Complete(ctx context.Context, tenantID, id string, method Method) (*Pairing, error) {
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}

	now := s.now()
	won, err := s.repo.Complete(ctx, tenantID, id, method, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete pairing: %w", err)
	}

	p, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !won {
		return p, nil
	}

	rec := history.NewRecord(tenantID, p.Members(), schedule.WeekStart(now))
	if err := s.historyRepo.Append(ctx, []history.Record{rec}); err != nil {
		return nil, fmt.Errorf("failed to record history: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePairingCompleted,
		TenantID: tenantID,
		Resource: id,
		Metadata: map[string]any{"method": string(method)},
	})
	return p, nil
}

// CompleteForUser is the explicit completion path: it resolves the
// caller's own pairing and rejects when none exists or it is already
// completed, so the surface can render "already done" distinctly.
func (s *Service) CompleteForUser(ctx context.Context, tenantID, userID string) (*Pairing, error) {
	p, err := s.repo.ForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if p.Completed() {
		return p, ErrAlreadyCompleted
	}
	return s.Complete(ctx, tenantID, p.ID, MethodManual)
}
