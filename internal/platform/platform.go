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

// Package platform abstracts the chat platform the service runs against.
// The scheduler and presence tracker talk to these interfaces; the concrete
// adapter (a Discord gateway in production) lives outside this module.
package platform

import (
	"context"
	"errors"
	"log/slog"

	"github.com/brewpair/brewpair/internal/matching"
)

var (
	ErrSlotNotFound  = errors.New("slot not found on platform")
	ErrSlotAmbiguous = errors.New("slot label matches multiple platform channels")
)

// Gateway exposes the platform state the service reads: which members are
// still present in the tenant's community, and who currently occupies a
// meeting slot.
type Gateway interface {
	// ListMemberIDs returns the user IDs still present in the tenant's
	// community, used to drop departed members before matching.
	ListMemberIDs(ctx context.Context, tenantID string) ([]string, error)

	// SlotOccupants returns the user IDs currently inside a meeting slot.
	SlotOccupants(ctx context.Context, tenantID, slotRef string) ([]string, error)

	// ResolveSlotRef maps a slot label to the platform's channel reference.
	// ErrSlotNotFound when no channel carries the label, ErrSlotAmbiguous
	// when more than one does.
	ResolveSlotRef(ctx context.Context, tenantID, slotLabel string) (string, error)
}

// Notifier delivers the service's outbound messages. Implementations post
// to the tenant's configured channels and member DMs.
type Notifier interface {
	// SignupAnnouncement posts the weekly signup-open message at the window
	// start, optionally pinging the configured role. windowDesc is the
	// rendered window ("Friday from 14:00 to 19:00 CT") for the message body.
	SignupAnnouncement(ctx context.Context, tenantID string, pingRole string, windowDesc string) error

	// Pairings posts the week's assignments to the pairings channel.
	Pairings(ctx context.Context, tenantID string, pairs []matching.Pair) error

	// NotEnoughSignups tells the tenant the week is skipped for lack of
	// participants.
	NotEnoughSignups(ctx context.Context, tenantID string, signups int) error

	// Reminder nudges the members of a still-incomplete pairing.
	Reminder(ctx context.Context, tenantID string, memberIDs []string, slotLabel string) error

	// Direct sends a one-off message to a single member.
	Direct(ctx context.Context, tenantID, userID, message string) error
}

// LogNotifier writes every notification to the structured log instead of a
// chat platform. The default when no adapter is configured, and what the
// scheduler tests observe.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SignupAnnouncement(ctx context.Context, tenantID string, pingRole string, windowDesc string) error {
	n.logger.InfoContext(ctx, "signup announcement",
		slog.String("tenant_id", tenantID),
		slog.String("ping_role", pingRole),
		slog.String("window", windowDesc))
	return nil
}

func (n *LogNotifier) Pairings(ctx context.Context, tenantID string, pairs []matching.Pair) error {
	n.logger.InfoContext(ctx, "pairings announcement",
		slog.String("tenant_id", tenantID),
		slog.Int("pairings", len(pairs)))
	return nil
}

func (n *LogNotifier) NotEnoughSignups(ctx context.Context, tenantID string, signups int) error {
	n.logger.InfoContext(ctx, "not enough signups",
		slog.String("tenant_id", tenantID),
		slog.Int("signups", signups))
	return nil
}

func (n *LogNotifier) Reminder(ctx context.Context, tenantID string, memberIDs []string, slotLabel string) error {
	n.logger.InfoContext(ctx, "pairing reminder",
		slog.String("tenant_id", tenantID),
		slog.Any("member_ids", memberIDs),
		slog.String("slot_label", slotLabel))
	return nil
}

func (n *LogNotifier) Direct(ctx context.Context, tenantID, userID, message string) error {
	n.logger.InfoContext(ctx, "direct message",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("message", message))
	return nil
}

// AllPresentGateway is a gateway that treats every member as present and
// resolves no slots. Used when the service runs without a platform adapter.
type AllPresentGateway struct{}

func (AllPresentGateway) ListMemberIDs(ctx context.Context, tenantID string) ([]string, error) {
	return nil, nil
}

func (AllPresentGateway) SlotOccupants(ctx context.Context, tenantID, slotRef string) ([]string, error) {
	return nil, nil
}

func (AllPresentGateway) ResolveSlotRef(ctx context.Context, tenantID, slotLabel string) (string, error) {
	return "", ErrSlotNotFound
}
