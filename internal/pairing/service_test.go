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
	"testing"
	"time"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/history"
	"github.com/brewpair/brewpair/internal/matching"
)

// MockRepository is a simple in-memory implementation of Repository
type MockRepository struct {
	pairings map[string]*Pairing
}

func NewMockRepository() *MockRepository {
	return &MockRepository{pairings: make(map[string]*Pairing)}
}

func (m *MockRepository) CreateBatch(ctx context.Context, pairings []*Pairing) error {
	for _, p := range pairings {
		cp := *p
		m.pairings[p.ID] = &cp
	}
	return nil
}

func (m *MockRepository) Get(ctx context.Context, tenantID, id string) (*Pairing, error) {
	p, ok := m.pairings[id]
	if !ok || p.TenantID != tenantID {
		return nil, ErrPairingNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockRepository) ForUser(ctx context.Context, tenantID, userID string) (*Pairing, error) {
	for _, p := range m.pairings {
		if p.TenantID == tenantID && p.Has(userID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPairingNotFound
}

func (m *MockRepository) List(ctx context.Context, tenantID string) ([]*Pairing, error) {
	var out []*Pairing
	for _, p := range m.pairings {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRepository) Incomplete(ctx context.Context, tenantID string) ([]*Pairing, error) {
	var out []*Pairing
	for _, p := range m.pairings {
		if p.TenantID == tenantID && !p.Completed() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRepository) CompletedCount(ctx context.Context, tenantID string) (int, error) {
	n := 0
	for _, p := range m.pairings {
		if p.TenantID == tenantID && p.Completed() {
			n++
		}
	}
	return n, nil
}

func (m *MockRepository) Complete(ctx context.Context, tenantID, id string, method Method, at time.Time) (bool, error) {
	p, ok := m.pairings[id]
	if !ok || p.TenantID != tenantID || p.Completed() {
		return false, nil
	}
	p.CompletedAt = &at
	p.Method = method
	return true, nil
}

func (m *MockRepository) Clear(ctx context.Context, tenantID string) error {
	for id, p := range m.pairings {
		if p.TenantID == tenantID {
			delete(m.pairings, id)
		}
	}
	return nil
}

// MockHistoryRepository records appended rows with the ledger's dedup
// semantics.
type MockHistoryRepository struct {
	records []history.Record
}

func (m *MockHistoryRepository) Append(ctx context.Context, records []history.Record) error {
	for _, rec := range records {
		dup := false
		for _, have := range m.records {
			if have.TenantID == rec.TenantID && have.MemberA == rec.MemberA &&
				have.MemberB == rec.MemberB && have.WeekOf.Equal(rec.WeekOf) {
				dup = true
				break
			}
		}
		if !dup {
			m.records = append(m.records, rec)
		}
	}
	return nil
}

func (m *MockHistoryRepository) Since(ctx context.Context, tenantID string, from time.Time) ([]history.Record, error) {
	return m.records, nil
}

func (m *MockHistoryRepository) DeleteWeek(ctx context.Context, tenantID string, weekOf time.Time) error {
	return nil
}

func (m *MockHistoryRepository) CountByMember(ctx context.Context, tenantID string, limit int) ([]history.MemberCount, error) {
	return nil, nil
}

func newTestService() (*Service, *MockRepository, *MockHistoryRepository) {
	repo := NewMockRepository()
	hist := &MockHistoryRepository{}
	s := NewService(repo, hist, audit.NopLogger{})
	return s, repo, hist
}

func TestService_CreateFromMatch(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	third := "carol"
	pairs := []matching.Pair{
		{MemberA: "alice", MemberB: "bob", MemberC: &third, SlotLabel: "Coffee Chat VC 01"},
		{MemberA: "dave", MemberB: "erin", SlotLabel: "Coffee Chat VC 02"},
	}
	slotRefs := map[string]string{"Coffee Chat VC 01": "channel-100"}

	created, err := s.CreateFromMatch(ctx, "tenant-1", pairs, slotRefs)
	if err != nil {
		t.Fatalf("failed to create pairings: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 pairings, got %d", len(created))
	}

	if created[0].SlotRef == nil || *created[0].SlotRef != "channel-100" {
		t.Errorf("expected resolved slot ref on first pairing, got %v", created[0].SlotRef)
	}
	// Unresolvable labels stay label-only.
	if created[1].SlotRef != nil {
		t.Errorf("expected nil slot ref on second pairing, got %v", *created[1].SlotRef)
	}

	p, err := s.ForUser(ctx, "tenant-1", "carol")
	if err != nil {
		t.Fatalf("trio member not findable: %v", err)
	}
	if p.ID != created[0].ID {
		t.Errorf("expected carol in first pairing")
	}
}

func TestService_CreateManual_RejectsSelfPairing(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	if _, err := s.CreateManual(ctx, "tenant-1", "alice", "alice", nil, "", nil, "admin-1"); err != ErrSelfPairing {
		t.Errorf("expected ErrSelfPairing, got %v", err)
	}

	dup := "bob"
	if _, err := s.CreateManual(ctx, "tenant-1", "alice", "bob", &dup, "", nil, "admin-1"); err != ErrSelfPairing {
		t.Errorf("expected ErrSelfPairing for duplicate trio member, got %v", err)
	}

	if _, err := s.CreateManual(ctx, "tenant-1", "alice", "bob", nil, "Coffee Chat VC 03", nil, "admin-1"); err != nil {
		t.Errorf("expected manual pairing to succeed, got %v", err)
	}
}

// TestPurpose: Validates the single-winner completion semantics: the
// first writer completes and records history, later writers of either
// method observe the existing state without error and without duplicate
// history.
func TestService_Complete_Idempotent(t *testing.T) {
	s, _, hist := newTestService()
	ctx := context.Background()

	created, err := s.CreateFromMatch(ctx, "tenant-1", []matching.Pair{
		{MemberA: "alice", MemberB: "bob", SlotLabel: "Coffee Chat VC 01"},
	}, nil)
	if err != nil {
		t.Fatalf("failed to create pairing: %v", err)
	}
	id := created[0].ID

	p, err := s.Complete(ctx, "tenant-1", id, MethodPresence)
	if err != nil {
		t.Fatalf("first completion failed: %v", err)
	}
	if !p.Completed() || p.Method != MethodPresence {
		t.Fatalf("expected completed presence pairing, got %+v", p)
	}
	if len(hist.records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(hist.records))
	}

	// The second writer loses the race but still gets the record back.
	p2, err := s.Complete(ctx, "tenant-1", id, MethodManual)
	if err != nil {
		t.Fatalf("second completion errored: %v", err)
	}
	if p2.Method != MethodPresence {
		t.Errorf("loser must observe the winner's method, got %s", p2.Method)
	}
	if len(hist.records) != 1 {
		t.Errorf("expected no duplicate history, got %d records", len(hist.records))
	}
}

func TestService_Complete_InvalidMethod(t *testing.T) {
	s, _, _ := newTestService()

	if _, err := s.Complete(context.Background(), "tenant-1", "any", Method("guesswork")); err != ErrInvalidMethod {
		t.Errorf("expected ErrInvalidMethod, got %v", err)
	}
}

func TestService_CompleteForUser(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	if _, err := s.CompleteForUser(ctx, "tenant-1", "alice"); err != ErrPairingNotFound {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}

	created, err := s.CreateFromMatch(ctx, "tenant-1", []matching.Pair{
		{MemberA: "alice", MemberB: "bob", SlotLabel: "Coffee Chat VC 01"},
	}, nil)
	if err != nil {
		t.Fatalf("failed to create pairing: %v", err)
	}

	p, err := s.CompleteForUser(ctx, "tenant-1", "alice")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if p.ID != created[0].ID || p.Method != MethodManual {
		t.Errorf("unexpected pairing after completion: %+v", p)
	}

	// The explicit path distinguishes "already done".
	p, err = s.CompleteForUser(ctx, "tenant-1", "bob")
	if err != ErrAlreadyCompleted {
		t.Errorf("expected ErrAlreadyCompleted, got %v", err)
	}
	if p == nil || !p.Completed() {
		t.Errorf("expected the existing record alongside ErrAlreadyCompleted")
	}
}

// TestPurpose: Validates the trio history contribution on completion: a
// completed trio produces one record carrying all three members.
func TestService_Complete_TrioHistory(t *testing.T) {
	s, _, hist := newTestService()
	ctx := context.Background()

	third := "carol"
	created, err := s.CreateFromMatch(ctx, "tenant-1", []matching.Pair{
		{MemberA: "bob", MemberB: "alice", MemberC: &third, SlotLabel: "Coffee Chat VC 01"},
	}, nil)
	if err != nil {
		t.Fatalf("failed to create pairing: %v", err)
	}

	if _, err := s.Complete(ctx, "tenant-1", created[0].ID, MethodManual); err != nil {
		t.Fatalf("completion failed: %v", err)
	}

	if len(hist.records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(hist.records))
	}
	rec := hist.records[0]
	// Members are stored in canonical sorted order.
	if rec.MemberA != "alice" || rec.MemberB != "bob" || rec.MemberC == nil || *rec.MemberC != "carol" {
		t.Errorf("unexpected history record: %+v", rec)
	}
}
