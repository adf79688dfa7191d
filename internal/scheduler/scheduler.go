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

// Package scheduler drives the weekly pairing cycle: announcing signups
// at the window open, matching at the window close, reminding laggards,
// and resetting state at the week boundary.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/config"
	"github.com/brewpair/brewpair/internal/history"
	"github.com/brewpair/brewpair/internal/matching"
	"github.com/brewpair/brewpair/internal/observability/metrics"
	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/platform"
	"github.com/brewpair/brewpair/internal/report"
	"github.com/brewpair/brewpair/internal/roster"
	"github.com/brewpair/brewpair/internal/schedule"
)

// ErrNotEnoughSignups is returned by RunMatching when fewer than two
// eligible members signed up.
var ErrNotEnoughSignups = errors.New("not enough signups to match")

// RematchBlockedError explains why a non-forced rematch refused to run.
type RematchBlockedError struct {
	Completed      int
	PendingReports int
}

func (e *RematchBlockedError) Error() string {
	return fmt.Sprintf("rematch blocked: %d completed pairings, %d pending reports (use force to discard)",
		e.Completed, e.PendingReports)
}

// Scheduler owns the weekly cadence. One instance serves all tenants;
// each tick it walks the configured tenants and runs every job whose
// reference-timezone trigger instant has arrived and whose once-per-week
// marker is not yet set.
type Scheduler struct {
	schedules    schedule.Repository
	roster       *roster.Service
	pairings     *pairing.Service
	reports      *report.Service
	historyRepo  history.Repository
	gateway      platform.Gateway
	notifier     platform.Notifier
	auditLogger  audit.Logger
	logger       *slog.Logger
	pairingCfg   config.PairingConfig
	schedulerCfg config.SchedulerConfig

	jobsRun     metric.Int64Counter
	matchingDur metric.Float64Histogram

	// ranMu guards ran, the in-memory once-per-week fallback consulted
	// when the persisted marker could not be written.
	ranMu sync.Mutex
	ran   map[string]struct{}

	now func() time.Time
}

func New(
	schedules schedule.Repository,
	rosterSvc *roster.Service,
	pairings *pairing.Service,
	reports *report.Service,
	historyRepo history.Repository,
	gateway platform.Gateway,
	notifier platform.Notifier,
	auditLogger audit.Logger,
	logger *slog.Logger,
	meter *metrics.Meter,
	pairingCfg config.PairingConfig,
	schedulerCfg config.SchedulerConfig,
) (*Scheduler, error) {
	s := &Scheduler{
		schedules:    schedules,
		roster:       rosterSvc,
		pairings:     pairings,
		reports:      reports,
		historyRepo:  historyRepo,
		gateway:      gateway,
		notifier:     notifier,
		auditLogger:  auditLogger,
		logger:       logger,
		pairingCfg:   pairingCfg,
		schedulerCfg: schedulerCfg,
		ran:          make(map[string]struct{}),
		now:          time.Now,
	}

	if meter != nil {
		var err error
		s.jobsRun, err = meter.CreateCounter("brewpair.scheduler.jobs_run",
			"Number of scheduled jobs executed")
		if err != nil {
			return nil, fmt.Errorf("failed to create jobs counter: %w", err)
		}
		s.matchingDur, err = meter.CreateHistogram("brewpair.matching.duration",
			"Duration of a matching run", "ms")
		if err != nil {
			return nil, fmt.Errorf("failed to create matching histogram: %w", err)
		}
	}
	return s, nil
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.schedulerCfg.TickInterval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "scheduler started",
		slog.Duration("tick_interval", s.schedulerCfg.TickInterval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}

// Tick evaluates every configured tenant against the given instant. A
// failing tenant is logged and skipped; it never blocks the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	tenants, err := s.schedules.ListConfigured(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list configured tenants", slog.Any("error", err))
		return
	}

	for _, sched := range tenants {
		if err := s.tickTenant(ctx, sched, now); err != nil {
			s.logger.ErrorContext(ctx, "tenant tick failed",
				slog.String("tenant_id", sched.TenantID),
				slog.Any("error", err))
		}
	}
}

func (s *Scheduler) tickTenant(ctx context.Context, sched *schedule.Schedule, now time.Time) error {
	ref := schedule.ReferenceTime(now)
	window := schedule.ResolveWindow(sched)
	weekKey := schedule.WeekKey(now)

	// Signup announcement at the window open.
	if int(ref.Weekday()) == window.DayOfWeek && ref.Hour() >= window.StartHour && ref.Hour() < window.EndHour {
		if s.shouldRun(sched, schedule.JobSignupAnnouncement, weekKey) {
			if err := s.announceSignups(ctx, sched, weekKey); err != nil {
				return err
			}
		}
	}

	// Matching once the window closes.
	if int(ref.Weekday()) == window.DayOfWeek && ref.Hour() >= window.EndHour {
		if s.shouldRun(sched, schedule.JobMatching, weekKey) {
			if err := s.runScheduledMatching(ctx, sched, weekKey); err != nil {
				return err
			}
		}
	}

	// Reminder a fixed offset after the signup day.
	reminderDay := (window.DayOfWeek + s.schedulerCfg.ReminderOffsetDays) % 7
	if int(ref.Weekday()) == reminderDay && ref.Hour() >= s.schedulerCfg.ReminderHour {
		if s.shouldRun(sched, schedule.JobReminder, weekKey) {
			if err := s.sendReminders(ctx, sched, weekKey); err != nil {
				return err
			}
		}
	}

	// Weekly reset at the fixed service-wide instant.
	if int(ref.Weekday()) == s.schedulerCfg.ResetDayOfWeek && ref.Hour() >= s.schedulerCfg.ResetHour {
		if s.shouldRun(sched, schedule.JobWeeklyReset, weekKey) {
			if err := s.weeklyReset(ctx, sched, weekKey); err != nil {
				return err
			}
		}
	}

	return nil
}

// shouldRun consults the persisted once-per-week marker first and the
// in-memory fallback second, so a failed marker write cannot cause a
// double announcement within one process lifetime.
func (s *Scheduler) shouldRun(sched *schedule.Schedule, job schedule.JobType, weekKey string) bool {
	if sched.LastRunWeek(job) == weekKey {
		return false
	}
	s.ranMu.Lock()
	defer s.ranMu.Unlock()
	_, ok := s.ran[runKey(sched.TenantID, job, weekKey)]
	return !ok
}

// markJobRun records the marker in memory first, then persists it. A
// persistence failure is logged, not returned: the in-memory entry keeps
// the week deduplicated until restart.
func (s *Scheduler) markJobRun(ctx context.Context, tenantID string, job schedule.JobType, weekKey string) {
	s.ranMu.Lock()
	s.ran[runKey(tenantID, job, weekKey)] = struct{}{}
	s.ranMu.Unlock()

	if err := s.schedules.MarkJobRun(ctx, tenantID, job, weekKey); err != nil {
		s.logger.WarnContext(ctx, "failed to persist job marker",
			slog.String("tenant_id", tenantID),
			slog.String("job", string(job)),
			slog.String("week", weekKey),
			slog.Any("error", err))
	}

	if s.jobsRun != nil {
		s.jobsRun.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job", string(job))))
	}
}

func runKey(tenantID string, job schedule.JobType, weekKey string) string {
	return tenantID + ":" + string(job) + ":" + weekKey
}

func (s *Scheduler) announceSignups(ctx context.Context, sched *schedule.Schedule, weekKey string) error {
	windowDesc := schedule.ResolveWindow(sched).Describe()
	if err := s.notifier.SignupAnnouncement(ctx, sched.TenantID, sched.PingRole, windowDesc); err != nil {
		return fmt.Errorf("failed to announce signups: %w", err)
	}
	s.markJobRun(ctx, sched.TenantID, schedule.JobSignupAnnouncement, weekKey)
	return nil
}

func (s *Scheduler) runScheduledMatching(ctx context.Context, sched *schedule.Schedule, weekKey string) error {
	// A crash after pairings were written but before the marker landed
	// must not rematch the week on restart.
	existing, err := s.pairings.List(ctx, sched.TenantID)
	if err != nil {
		return fmt.Errorf("failed to check existing pairings: %w", err)
	}
	if len(existing) > 0 {
		s.logger.InfoContext(ctx, "pairings already exist, skipping matching",
			slog.String("tenant_id", sched.TenantID),
			slog.String("week", weekKey))
		s.markJobRun(ctx, sched.TenantID, schedule.JobMatching, weekKey)
		return nil
	}

	if err := s.RunMatching(ctx, sched.TenantID, nil); err != nil && !errors.Is(err, ErrNotEnoughSignups) {
		return err
	}
	s.markJobRun(ctx, sched.TenantID, schedule.JobMatching, weekKey)
	return nil
}

// RunMatching executes one matching pass for a tenant: filter the signup
// list down to eligible, still-present members, run the engine, resolve
// slot references, persist, and announce. rng is injectable for tests;
// nil gets a time-seeded source.
func (s *Scheduler) RunMatching(ctx context.Context, tenantID string, rng *rand.Rand) error {
	start := s.now()

	members, err := s.roster.EligibleSignups(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load eligible signups: %w", err)
	}
	members, err = s.filterDeparted(ctx, tenantID, members)
	if err != nil {
		return err
	}

	if len(members) < 2 {
		if err := s.notifier.NotEnoughSignups(ctx, tenantID, len(members)); err != nil {
			s.logger.WarnContext(ctx, "failed to send not-enough-signups notice",
				slog.String("tenant_id", tenantID), slog.Any("error", err))
		}
		return ErrNotEnoughSignups
	}

	since := schedule.WeeksAgo(s.now(), s.pairingCfg.HistoryWeeks)
	hist, err := s.historyRepo.Since(ctx, tenantID, since)
	if err != nil {
		return fmt.Errorf("failed to load pairing history: %w", err)
	}

	pairs := matching.Match(members, hist, matching.Options{
		TotalSlots: s.pairingCfg.TotalSlots,
		SlotPrefix: s.pairingCfg.SlotPrefix,
		Rand:       rng,
	})

	slotRefs := s.resolveSlotRefs(ctx, tenantID, pairs)

	created, err := s.pairings.CreateFromMatch(ctx, tenantID, pairs, slotRefs)
	if err != nil {
		return fmt.Errorf("failed to persist pairings: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMatchingRun,
		TenantID: tenantID,
		Resource: "pairings",
		Metadata: map[string]any{"signups": len(members), "pairings": len(created)},
	})

	if err := s.notifier.Pairings(ctx, tenantID, pairs); err != nil {
		s.logger.WarnContext(ctx, "failed to announce pairings",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
	}
	s.dmPairings(ctx, tenantID, created)

	if s.matchingDur != nil {
		s.matchingDur.Record(ctx, float64(s.now().Sub(start).Milliseconds()))
	}
	s.logger.InfoContext(ctx, "matching complete",
		slog.String("tenant_id", tenantID),
		slog.Int("signups", len(members)),
		slog.Int("pairings", len(created)))
	return nil
}

// dmPairings tells each member who they were matched with. Best effort:
// closed DMs are common and never fail the run.
func (s *Scheduler) dmPairings(ctx context.Context, tenantID string, created []*pairing.Pairing) {
	for _, p := range created {
		members := p.Members()
		for _, userID := range members {
			partners := make([]string, 0, len(members)-1)
			for _, other := range members {
				if other != userID {
					partners = append(partners, other)
				}
			}
			msg := fmt.Sprintf("You have been paired with %s this week. Meet in %s.",
				strings.Join(partners, " and "), p.SlotLabel)
			if err := s.notifier.Direct(ctx, tenantID, userID, msg); err != nil {
				s.logger.DebugContext(ctx, "failed to DM pairing",
					slog.String("tenant_id", tenantID),
					slog.String("user_id", userID),
					slog.Any("error", err))
			}
		}
	}
}

// filterDeparted drops members the platform no longer knows about. An
// empty gateway listing means no liveness data, so everyone is kept.
func (s *Scheduler) filterDeparted(ctx context.Context, tenantID string, members []*roster.Member) ([]*roster.Member, error) {
	ids, err := s.gateway.ListMemberIDs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list platform members: %w", err)
	}
	if len(ids) == 0 {
		return members, nil
	}
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	kept := members[:0]
	for _, m := range members {
		if present[m.UserID] {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// resolveSlotRefs maps slot labels to platform channel references.
// Unresolvable labels stay unmapped; the pairing still carries its label
// and falls back to manual completion.
func (s *Scheduler) resolveSlotRefs(ctx context.Context, tenantID string, pairs []matching.Pair) map[string]string {
	refs := make(map[string]string)
	for _, p := range pairs {
		if _, ok := refs[p.SlotLabel]; ok {
			continue
		}
		ref, err := s.gateway.ResolveSlotRef(ctx, tenantID, p.SlotLabel)
		if err != nil {
			if !errors.Is(err, platform.ErrSlotNotFound) {
				s.logger.WarnContext(ctx, "failed to resolve slot",
					slog.String("tenant_id", tenantID),
					slog.String("slot_label", p.SlotLabel),
					slog.Any("error", err))
			}
			continue
		}
		refs[p.SlotLabel] = ref
	}
	return refs
}

// ForceRematch throws away the current week's pairings and reruns
// matching. Without force it refuses when any pairing already completed
// or a report is pending; with force it discards both, including the
// week's history rows, so the rerun does not treat the discarded
// pairings as met.
func (s *Scheduler) ForceRematch(ctx context.Context, tenantID string, force bool, actorID string) error {
	completed, err := s.pairings.CompletedCount(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to count completed pairings: %w", err)
	}
	pendingReports, err := s.reports.PendingCount(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to count pending reports: %w", err)
	}
	if !force && (completed > 0 || pendingReports > 0) {
		return &RematchBlockedError{Completed: completed, PendingReports: pendingReports}
	}

	if force {
		if _, err := s.reports.ExpireAllPending(ctx, tenantID); err != nil {
			return err
		}
		weekOf := schedule.WeekStart(s.now())
		if err := s.historyRepo.DeleteWeek(ctx, tenantID, weekOf); err != nil {
			return fmt.Errorf("failed to delete week history: %w", err)
		}
	}
	if err := s.pairings.Clear(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to clear pairings: %w", err)
	}

	s.logger.InfoContext(ctx, "rematch requested",
		slog.String("tenant_id", tenantID),
		slog.Bool("force", force),
		slog.String("actor_id", actorID))

	return s.RunMatching(ctx, tenantID, nil)
}

func (s *Scheduler) sendReminders(ctx context.Context, sched *schedule.Schedule, weekKey string) error {
	incomplete, err := s.pairings.Incomplete(ctx, sched.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load incomplete pairings: %w", err)
	}
	for _, p := range incomplete {
		if err := s.notifier.Reminder(ctx, sched.TenantID, p.Members(), p.SlotLabel); err != nil {
			s.logger.WarnContext(ctx, "failed to send reminder",
				slog.String("tenant_id", sched.TenantID),
				slog.String("pairing_id", p.ID),
				slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "reminders sent",
		slog.String("tenant_id", sched.TenantID),
		slog.Int("incomplete", len(incomplete)))
	s.markJobRun(ctx, sched.TenantID, schedule.JobReminder, weekKey)
	return nil
}

// weeklyReset clears transient week state: pending reports expire,
// signups and pairings are wiped. History and penalties persist across
// the boundary.
func (s *Scheduler) weeklyReset(ctx context.Context, sched *schedule.Schedule, weekKey string) error {
	var errs []string

	if _, err := s.reports.ExpireAllPending(ctx, sched.TenantID); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.roster.ClearSignups(ctx, sched.TenantID, "scheduler"); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.pairings.Clear(ctx, sched.TenantID); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("weekly reset incomplete: %s", strings.Join(errs, "; "))
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeWeeklyReset,
		TenantID: sched.TenantID,
		Resource: "week",
		Metadata: map[string]any{"week": weekKey},
	})
	s.markJobRun(ctx, sched.TenantID, schedule.JobWeeklyReset, weekKey)
	return nil
}
