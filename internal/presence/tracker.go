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

// Package presence completes pairings automatically when the assigned
// members stay together in their meeting slot long enough.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/platform"
)

// RequiredParticipants is how many assigned members must share the slot
// for the debounce to run. Two suffices even for a trio.
const RequiredParticipants = 2

// Tracker turns platform presence events into pairing completions. When
// enough of a pairing's members share its slot, a debounce timer starts;
// if they are still together when it fires, the pairing completes with
// MethodPresence. Occupancy dropping below the threshold cancels the
// timer, so a drive-by visit never counts. Timers are process-local and
// lost on restart.
type Tracker struct {
	pairings *pairing.Service
	gateway  platform.Gateway
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer // keyed tenantID + ":" + pairingID
}

func NewTracker(pairings *pairing.Service, gateway platform.Gateway, logger *slog.Logger, debounce time.Duration) *Tracker {
	return &Tracker{
		pairings: pairings,
		gateway:  gateway,
		logger:   logger,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}
}

// HandlePresence processes a presence change for one user. The platform
// adapter calls it on every slot join and leave.
func (t *Tracker) HandlePresence(ctx context.Context, tenantID, userID string) {
	p, err := t.pairings.ForUser(ctx, tenantID, userID)
	if err != nil {
		if err != pairing.ErrPairingNotFound {
			t.logger.ErrorContext(ctx, "failed to load pairing for presence event",
				slog.String("tenant_id", tenantID),
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
		return
	}
	if p.Completed() || p.SlotRef == nil {
		t.disarm(tenantID, p.ID)
		return
	}

	present, err := t.presentCount(ctx, tenantID, p)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to read slot occupants",
			slog.String("tenant_id", tenantID),
			slog.String("pairing_id", p.ID),
			slog.Any("error", err))
		return
	}

	if present >= RequiredParticipants {
		t.arm(tenantID, p.ID)
	} else {
		t.disarm(tenantID, p.ID)
	}
}

// presentCount counts how many of the pairing's members currently occupy
// its slot.
func (t *Tracker) presentCount(ctx context.Context, tenantID string, p *pairing.Pairing) (int, error) {
	occupants, err := t.gateway.SlotOccupants(ctx, tenantID, *p.SlotRef)
	if err != nil {
		return 0, err
	}
	present := make(map[string]bool, len(occupants))
	for _, id := range occupants {
		present[id] = true
	}
	count := 0
	for _, m := range p.Members() {
		if present[m] {
			count++
		}
	}
	return count, nil
}

// arm starts the debounce timer for a pairing unless one is already
// running.
func (t *Tracker) arm(tenantID, pairingID string) {
	key := tenantID + ":" + pairingID

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.timers[key]; ok {
		return
	}
	t.timers[key] = time.AfterFunc(t.debounce, func() {
		t.fire(tenantID, pairingID)
	})
}

func (t *Tracker) disarm(tenantID, pairingID string) {
	key := tenantID + ":" + pairingID

	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
}

// fire re-verifies occupancy after the debounce elapses. Members can have
// left between the last event and now, so both the pairing and the slot
// are re-read before completing.
func (t *Tracker) fire(tenantID, pairingID string) {
	ctx := context.Background()

	t.mu.Lock()
	delete(t.timers, tenantID+":"+pairingID)
	t.mu.Unlock()

	p, err := t.pairings.Get(ctx, tenantID, pairingID)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to load pairing after debounce",
			slog.String("tenant_id", tenantID),
			slog.String("pairing_id", pairingID),
			slog.Any("error", err))
		return
	}
	if p.Completed() || p.SlotRef == nil {
		return
	}

	present, err := t.presentCount(ctx, tenantID, p)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to re-check slot occupants",
			slog.String("tenant_id", tenantID),
			slog.String("pairing_id", pairingID),
			slog.Any("error", err))
		return
	}
	if present < RequiredParticipants {
		return
	}

	if _, err := t.pairings.Complete(ctx, tenantID, pairingID, pairing.MethodPresence); err != nil {
		t.logger.ErrorContext(ctx, "failed to complete pairing from presence",
			slog.String("tenant_id", tenantID),
			slog.String("pairing_id", pairingID),
			slog.Any("error", err))
		return
	}
	t.logger.InfoContext(ctx, "pairing completed by presence",
		slog.String("tenant_id", tenantID),
		slog.String("pairing_id", pairingID))
}

// Stop cancels all pending debounce timers. Called on shutdown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
