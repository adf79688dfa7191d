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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/config"
	"github.com/brewpair/brewpair/internal/history"
	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/platform"
	"github.com/brewpair/brewpair/internal/presence"
	"github.com/brewpair/brewpair/internal/report"
	"github.com/brewpair/brewpair/internal/roster"
	"github.com/brewpair/brewpair/internal/schedule"
	"github.com/brewpair/brewpair/internal/scheduler"
)

// In-memory repositories backing a full handler stack. Everything below is
// single-goroutine under the test server, so no locking.

type memScheduleRepo struct {
	schedules map[string]*schedule.Schedule
}

func (m *memScheduleRepo) Get(ctx context.Context, tenantID string) (*schedule.Schedule, error) {
	s, ok := m.schedules[tenantID]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	return s, nil
}

func (m *memScheduleRepo) Upsert(ctx context.Context, s *schedule.Schedule) error {
	m.schedules[s.TenantID] = s
	return nil
}

func (m *memScheduleRepo) ListConfigured(ctx context.Context) ([]*schedule.Schedule, error) {
	return nil, nil
}

func (m *memScheduleRepo) MarkJobRun(ctx context.Context, tenantID string, job schedule.JobType, weekKey string) error {
	return nil
}

type memMemberRepo struct {
	members map[string]*roster.Member
}

func (m *memMemberRepo) Upsert(ctx context.Context, member *roster.Member) error {
	m.members[member.TenantID+":"+member.UserID] = member
	return nil
}

func (m *memMemberRepo) Get(ctx context.Context, tenantID, userID string) (*roster.Member, error) {
	member, ok := m.members[tenantID+":"+userID]
	if !ok {
		return nil, roster.ErrMemberNotFound
	}
	return member, nil
}

func (m *memMemberRepo) SetPenalty(ctx context.Context, tenantID, userID string, expiresAt *time.Time) error {
	member, ok := m.members[tenantID+":"+userID]
	if !ok {
		return roster.ErrMemberNotFound
	}
	member.PenaltyExpiresAt = expiresAt
	return nil
}

type memSignupRepo struct {
	members *memMemberRepo
	signups map[string][]string
}

func (m *memSignupRepo) Add(ctx context.Context, tenantID, userID string) error {
	for _, id := range m.signups[tenantID] {
		if id == userID {
			return roster.ErrAlreadySignedUp
		}
	}
	m.signups[tenantID] = append(m.signups[tenantID], userID)
	return nil
}

func (m *memSignupRepo) Remove(ctx context.Context, tenantID, userID string) error {
	ids := m.signups[tenantID]
	for i, id := range ids {
		if id == userID {
			m.signups[tenantID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return roster.ErrNotSignedUp
}

func (m *memSignupRepo) Exists(ctx context.Context, tenantID, userID string) (bool, error) {
	for _, id := range m.signups[tenantID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSignupRepo) ListMembers(ctx context.Context, tenantID string) ([]*roster.Member, error) {
	var out []*roster.Member
	for _, id := range m.signups[tenantID] {
		member, err := m.members.Get(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, nil
}

func (m *memSignupRepo) Clear(ctx context.Context, tenantID string) error {
	delete(m.signups, tenantID)
	return nil
}

type memPairingRepo struct {
	pairings []*pairing.Pairing
}

func (m *memPairingRepo) CreateBatch(ctx context.Context, ps []*pairing.Pairing) error {
	m.pairings = append(m.pairings, ps...)
	return nil
}

func (m *memPairingRepo) Get(ctx context.Context, tenantID, id string) (*pairing.Pairing, error) {
	for _, p := range m.pairings {
		if p.TenantID == tenantID && p.ID == id {
			return p, nil
		}
	}
	return nil, pairing.ErrPairingNotFound
}

func (m *memPairingRepo) ForUser(ctx context.Context, tenantID, userID string) (*pairing.Pairing, error) {
	for _, p := range m.pairings {
		if p.TenantID == tenantID && p.Has(userID) {
			return p, nil
		}
	}
	return nil, pairing.ErrPairingNotFound
}

func (m *memPairingRepo) List(ctx context.Context, tenantID string) ([]*pairing.Pairing, error) {
	var out []*pairing.Pairing
	for _, p := range m.pairings {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPairingRepo) Incomplete(ctx context.Context, tenantID string) ([]*pairing.Pairing, error) {
	var out []*pairing.Pairing
	for _, p := range m.pairings {
		if p.TenantID == tenantID && !p.Completed() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPairingRepo) CompletedCount(ctx context.Context, tenantID string) (int, error) {
	n := 0
	for _, p := range m.pairings {
		if p.TenantID == tenantID && p.Completed() {
			n++
		}
	}
	return n, nil
}

func (m *memPairingRepo) Complete(ctx context.Context, tenantID, id string, method pairing.Method, at time.Time) (bool, error) {
	for _, p := range m.pairings {
		if p.TenantID == tenantID && p.ID == id && !p.Completed() {
			p.CompletedAt = &at
			p.Method = method
			return true, nil
		}
	}
	return false, nil
}

func (m *memPairingRepo) Clear(ctx context.Context, tenantID string) error {
	kept := m.pairings[:0]
	for _, p := range m.pairings {
		if p.TenantID != tenantID {
			kept = append(kept, p)
		}
	}
	m.pairings = kept
	return nil
}

type memHistoryRepo struct {
	records []history.Record
}

func (m *memHistoryRepo) Append(ctx context.Context, records []history.Record) error {
	m.records = append(m.records, records...)
	return nil
}

func (m *memHistoryRepo) Since(ctx context.Context, tenantID string, from time.Time) ([]history.Record, error) {
	return nil, nil
}

func (m *memHistoryRepo) DeleteWeek(ctx context.Context, tenantID string, weekOf time.Time) error {
	return nil
}

func (m *memHistoryRepo) CountByMember(ctx context.Context, tenantID string, limit int) ([]history.MemberCount, error) {
	counts := map[string]int{}
	for _, r := range m.records {
		if r.TenantID != tenantID {
			continue
		}
		for _, id := range r.Members() {
			counts[id]++
		}
	}
	var out []history.MemberCount
	for id, n := range counts {
		out = append(out, history.MemberCount{UserID: id, Chats: n})
	}
	return out, nil
}

type memReportRepo struct {
	reports map[string]*report.Report
}

func (m *memReportRepo) Create(ctx context.Context, r *report.Report) error {
	m.reports[r.ID] = r
	return nil
}

func (m *memReportRepo) GetPending(ctx context.Context, tenantID, id string) (*report.Report, error) {
	r, ok := m.reports[id]
	if !ok || r.TenantID != tenantID || r.Status != report.StatusPending {
		return nil, report.ErrReportNotFound
	}
	return r, nil
}

func (m *memReportRepo) FindPending(ctx context.Context, tenantID, pairingID, reporterID, reportedID string) (*report.Report, error) {
	for _, r := range m.reports {
		if r.TenantID == tenantID && r.PairingID == pairingID &&
			r.ReporterID == reporterID && r.ReportedID == reportedID &&
			r.Status == report.StatusPending {
			return r, nil
		}
	}
	return nil, report.ErrReportNotFound
}

func (m *memReportRepo) LatestPendingForUser(ctx context.Context, tenantID, reportedID string) (*report.Report, error) {
	var latest *report.Report
	for _, r := range m.reports {
		if r.TenantID == tenantID && r.ReportedID == reportedID && r.Status == report.StatusPending {
			if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
				latest = r
			}
		}
	}
	if latest == nil {
		return nil, report.ErrReportNotFound
	}
	return latest, nil
}

func (m *memReportRepo) Resolve(ctx context.Context, tenantID, id string, status report.Status, reviewedBy, note string, at time.Time) (bool, error) {
	r, ok := m.reports[id]
	if !ok || r.Status != report.StatusPending {
		return false, nil
	}
	r.Status = status
	return true, nil
}

func (m *memReportRepo) ExpireAllPending(ctx context.Context, tenantID string, at time.Time) (int64, error) {
	var n int64
	for _, r := range m.reports {
		if r.TenantID == tenantID && r.Status == report.StatusPending {
			r.Status = report.StatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memReportRepo) PendingCount(ctx context.Context, tenantID string) (int, error) {
	n := 0
	for _, r := range m.reports {
		if r.TenantID == tenantID && r.Status == report.StatusPending {
			n++
		}
	}
	return n, nil
}

type testStack struct {
	router   http.Handler
	members  *memMemberRepo
	pairings *memPairingRepo
	reports  *memReportRepo
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	scheduleRepo := &memScheduleRepo{schedules: map[string]*schedule.Schedule{}}
	memberRepo := &memMemberRepo{members: map[string]*roster.Member{}}
	signupRepo := &memSignupRepo{members: memberRepo, signups: map[string][]string{}}
	pairingRepo := &memPairingRepo{}
	historyRepo := &memHistoryRepo{}
	reportRepo := &memReportRepo{reports: map[string]*report.Report{}}

	auditLogger := audit.NopLogger{}
	scheduleService := schedule.NewService(scheduleRepo, auditLogger)
	rosterService := roster.NewService(memberRepo, signupRepo, scheduleRepo, historyRepo, auditLogger)
	pairingService := pairing.NewService(pairingRepo, historyRepo, auditLogger)
	reportService := report.NewService(reportRepo, pairingRepo, memberRepo, auditLogger, 2)

	sched, err := scheduler.New(
		scheduleRepo, rosterService, pairingService, reportService, historyRepo,
		platform.AllPresentGateway{}, platform.NewLogNotifier(slog.Default()),
		auditLogger, slog.Default(), nil,
		config.PairingConfig{HistoryWeeks: 12, PenaltyWeeks: 2, TotalSlots: 10, SlotPrefix: "Coffee Chat VC "},
		config.SchedulerConfig{TickInterval: time.Minute, ReminderOffsetDays: 2, ReminderHour: 10, ResetDayOfWeek: 0, ResetHour: 23},
	)
	require.NoError(t, err)

	tracker := presence.NewTracker(pairingService, platform.AllPresentGateway{}, slog.Default(), 10*time.Millisecond)
	t.Cleanup(tracker.Stop)

	h := NewHandler(scheduleService, rosterService, pairingService, reportService, sched, tracker, auditLogger)
	return &testStack{
		router:   NewRouter(h, NewRateLimiter(1000, 1000)),
		members:  memberRepo,
		pairings: pairingRepo,
		reports:  reportRepo,
	}
}

func (s *testStack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newTestStack(t)
	w := s.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestJoin_Validation(t *testing.T) {
	s := newTestStack(t)
	base := "/api/v1/tenants/tenant-1/join"

	w := s.do(t, "POST", base, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", base, map[string]string{"user_id": "alice", "region": "MOON"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid region", decode(t, w)["error"])
}

func TestAdminSignups(t *testing.T) {
	s := newTestStack(t)
	base := "/api/v1/tenants/tenant-1/admin/signups"
	body := map[string]string{"user_id": "alice", "display_name": "Alice", "region": "EMEA", "actor_id": "mod-1"}

	w := s.do(t, "POST", base, body)
	require.Equal(t, http.StatusCreated, w.Code)

	// The admin path bypasses the window but still refuses duplicates.
	w = s.do(t, "POST", base, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, "GET", base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	signups := decode(t, w)["signups"].([]any)
	assert.Len(t, signups, 1)
}

func TestComplete_Lifecycle(t *testing.T) {
	s := newTestStack(t)
	base := "/api/v1/tenants/tenant-1/complete"
	s.pairings.CreateBatch(context.Background(), []*pairing.Pairing{{
		ID: "p1", TenantID: "tenant-1", MemberA: "alice", MemberB: "bob",
	}})

	w := s.do(t, "POST", base, map[string]string{"user_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "POST", base, map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["status"])

	// Completing again is idempotent, not an error.
	w = s.do(t, "POST", base, map[string]string{"user_id": "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "already_completed", resp["status"])
	assert.NotNil(t, resp["pairing"])
}

func TestFileReport(t *testing.T) {
	s := newTestStack(t)
	base := "/api/v1/tenants/tenant-1/report"
	s.pairings.CreateBatch(context.Background(), []*pairing.Pairing{{
		ID: "p1", TenantID: "tenant-1", MemberA: "alice", MemberB: "bob",
	}})

	w := s.do(t, "POST", base, map[string]string{"reporter_id": "alice", "reported_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", base, map[string]string{"reporter_id": "mallory", "reported_id": "alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "POST", base, map[string]string{"reporter_id": "alice", "reported_id": "carol"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", base, map[string]string{"reporter_id": "alice", "reported_id": "bob"})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Re-filing returns the existing pending report.
	w = s.do(t, "POST", base, map[string]string{"reporter_id": "alice", "reported_id": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResolveReport(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.members.Upsert(ctx, &roster.Member{TenantID: "tenant-1", UserID: "bob", Region: roster.RegionEMEA})
	s.pairings.CreateBatch(ctx, []*pairing.Pairing{{
		ID: "p1", TenantID: "tenant-1", MemberA: "alice", MemberB: "bob",
	}})

	w := s.do(t, "POST", "/api/v1/tenants/tenant-1/report",
		map[string]string{"reporter_id": "alice", "reported_id": "bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	reportID := decode(t, w)["id"].(string)

	resolve := "/api/v1/tenants/tenant-1/admin/reports/" + reportID + "/resolve"

	w = s.do(t, "POST", resolve, map[string]string{"outcome": "shrug", "actor_id": "mod-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "POST", resolve, map[string]string{"outcome": "penalized", "actor_id": "mod-1"})
	require.Equal(t, http.StatusOK, w.Code)

	bob, err := s.members.Get(ctx, "tenant-1", "bob")
	require.NoError(t, err)
	assert.NotNil(t, bob.PenaltyExpiresAt)

	// The report left pending; resolving again finds nothing.
	w = s.do(t, "POST", resolve, map[string]string{"outcome": "dismissed", "actor_id": "mod-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPenalties(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	base := "/api/v1/tenants/tenant-1/admin/penalties"
	s.members.Upsert(ctx, &roster.Member{TenantID: "tenant-1", UserID: "bob", Region: roster.RegionEMEA})

	w := s.do(t, "POST", base, map[string]string{"user_id": "ghost", "actor_id": "mod-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, "POST", base, map[string]string{"user_id": "bob", "actor_id": "mod-1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["penalty_expires_at"])

	w = s.do(t, "DELETE", base+"/bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "DELETE", base+"/bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestPurpose: applying an admin penalty while a report about the member
// is pending resolves that report as penalized rather than leaving it
// open alongside the penalty.
func TestPenalties_ResolvesPendingReport(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	s.members.Upsert(ctx, &roster.Member{TenantID: "tenant-1", UserID: "bob", Region: roster.RegionEMEA})
	s.pairings.CreateBatch(ctx, []*pairing.Pairing{{
		ID: "p1", TenantID: "tenant-1", MemberA: "alice", MemberB: "bob",
	}})

	w := s.do(t, "POST", "/api/v1/tenants/tenant-1/report",
		map[string]string{"reporter_id": "alice", "reported_id": "bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	reportID := decode(t, w)["id"].(string)

	w = s.do(t, "POST", "/api/v1/tenants/tenant-1/admin/penalties",
		map[string]string{"user_id": "bob", "actor_id": "mod-1"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, report.StatusPenalized, s.reports.reports[reportID].Status)

	bob, err := s.members.Get(ctx, "tenant-1", "bob")
	require.NoError(t, err)
	assert.NotNil(t, bob.PenaltyExpiresAt)
}

func TestAdminMatch(t *testing.T) {
	s := newTestStack(t)
	signups := "/api/v1/tenants/tenant-1/admin/signups"
	for _, id := range []string{"alice", "bob"} {
		w := s.do(t, "POST", signups, map[string]string{"user_id": id, "region": "EMEA", "actor_id": "mod-1"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, "POST", "/api/v1/tenants/tenant-1/admin/match",
		map[string]any{"force": false, "actor_id": "mod-1"})
	require.Equal(t, http.StatusOK, w.Code)
	pairings := decode(t, w)["pairings"].([]any)
	require.Len(t, pairings, 1)

	// A completed pairing blocks a plain rematch.
	w = s.do(t, "POST", "/api/v1/tenants/tenant-1/complete", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "POST", "/api/v1/tenants/tenant-1/admin/match",
		map[string]any{"force": false, "actor_id": "mod-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["completed"])

	w = s.do(t, "POST", "/api/v1/tenants/tenant-1/admin/match",
		map[string]any{"force": true, "actor_id": "mod-1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatus(t *testing.T) {
	s := newTestStack(t)
	w := s.do(t, "POST", "/api/v1/tenants/tenant-1/admin/signups",
		map[string]string{"user_id": "alice", "region": "APAC", "actor_id": "mod-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, "GET", "/api/v1/tenants/tenant-1/status?user_id=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode(t, w)["status"].(map[string]any)
	assert.Equal(t, true, st["signed_up"])

	w = s.do(t, "GET", "/api/v1/tenants/tenant-1/status", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaderboard(t *testing.T) {
	s := newTestStack(t)

	w := s.do(t, "GET", "/api/v1/tenants/tenant-1/leaderboard?limit=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, "GET", "/api/v1/tenants/tenant-1/leaderboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestPurpose: every read is tenant-scoped; one tenant's pairings are
// invisible to another.
func TestTenantScoping(t *testing.T) {
	s := newTestStack(t)
	s.pairings.CreateBatch(context.Background(), []*pairing.Pairing{{
		ID: "p1", TenantID: "tenant-1", MemberA: "alice", MemberB: "bob",
	}})

	w := s.do(t, "GET", "/api/v1/tenants/tenant-1/admin/pairings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["pairings"], 1)

	w = s.do(t, "GET", "/api/v1/tenants/tenant-2/admin/pairings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["pairings"])
}
