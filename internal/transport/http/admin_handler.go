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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brewpair/brewpair/internal/observability/logger"
	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/report"
	"github.com/brewpair/brewpair/internal/roster"
	"github.com/brewpair/brewpair/internal/schedule"
	"github.com/brewpair/brewpair/internal/scheduler"
)

// GetSchedule returns the tenant's schedule and its resolved window
// @Summary Get tenant schedule
// @Description Returns the stored schedule and the resolved signup window
// @Tags Schedule
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} map[string]any
// @Router /tenants/{tenantID}/schedule [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())

	window, err := h.scheduleService.Window(r.Context(), tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to resolve window",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	resp := map[string]any{"window": window}
	sched, err := h.scheduleService.Get(r.Context(), tenantID)
	if err == nil {
		resp["schedule"] = sched
	} else if !errors.Is(err, schedule.ErrScheduleNotFound) {
		slog.ErrorContext(r.Context(), "failed to load schedule",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// ScheduleRequest carries an admin schedule update. Window fields default
// to -1, meaning "keep the stored value".
type ScheduleRequest struct {
	TenantName           string `json:"tenant_name"`
	DayOfWeek            *int   `json:"day_of_week"`
	StartHour            *int   `json:"start_hour"`
	EndHour              *int   `json:"end_hour"`
	AnnouncementsChannel string `json:"announcements_channel"`
	PairingsChannel      string `json:"pairings_channel"`
	ModeratorRole        string `json:"moderator_role"`
	PingRole             string `json:"ping_role"`
	ActorID              string `json:"actor_id"`
}

// UpdateSchedule creates or updates the tenant's schedule
// @Summary Update tenant schedule
// @Description Creates or updates the tenant's window overrides and channel references
// @Tags Schedule
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body ScheduleRequest true "Schedule Data"
// @Success 200 {object} schedule.Schedule
// @Failure 400 {object} map[string]string
// @Router /tenants/{tenantID}/schedule [put]
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	params := schedule.UpsertParams{
		TenantName:           req.TenantName,
		DayOfWeek:            schedule.Unset,
		StartHour:            schedule.Unset,
		EndHour:              schedule.Unset,
		AnnouncementsChannel: req.AnnouncementsChannel,
		PairingsChannel:      req.PairingsChannel,
		ModeratorRole:        req.ModeratorRole,
		PingRole:             req.PingRole,
	}
	if req.DayOfWeek != nil {
		params.DayOfWeek = *req.DayOfWeek
	}
	if req.StartHour != nil {
		params.StartHour = *req.StartHour
	}
	if req.EndHour != nil {
		params.EndHour = *req.EndHour
	}

	tenantID := GetTenantID(r.Context())
	sched, err := h.scheduleService.Upsert(r.Context(), tenantID, params, req.ActorID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, sched)
}

// ResetRequest triggers a manual weekly reset
type ResetRequest struct {
	ActorID string `json:"actor_id"`
}

// Reset clears the week's signups, pairings and pending reports
// @Summary Reset the week
// @Description Expires pending reports and wipes the week's signups and pairings
// @Tags Admin
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body ResetRequest true "Reset Data"
// @Success 200 {object} map[string]string
// @Router /tenants/{tenantID}/admin/reset [post]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenantID := GetTenantID(r.Context())
	ctx := r.Context()

	if _, err := h.reportService.ExpireAllPending(ctx, tenantID); err != nil {
		slog.ErrorContext(ctx, "failed to expire reports",
			logger.Error(err), logger.TenantID(tenantID))
		respondError(w, http.StatusInternalServerError, "failed to reset week")
		return
	}
	if err := h.rosterService.ClearSignups(ctx, tenantID, req.ActorID); err != nil {
		slog.ErrorContext(ctx, "failed to clear signups",
			logger.Error(err), logger.TenantID(tenantID))
		respondError(w, http.StatusInternalServerError, "failed to reset week")
		return
	}
	if err := h.pairingService.Clear(ctx, tenantID); err != nil {
		slog.ErrorContext(ctx, "failed to clear pairings",
			logger.Error(err), logger.TenantID(tenantID))
		respondError(w, http.StatusInternalServerError, "failed to reset week")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// MatchRequest triggers a matching run
type MatchRequest struct {
	Force   bool   `json:"force"`
	ActorID string `json:"actor_id"`
}

// Match reruns matching for the current week. Without force, the run is
// refused when completed pairings or pending reports exist.
// @Summary Rerun matching
// @Description Discards the week's pairings and reruns matching; force discards completed pairings and pending reports too
// @Tags Admin
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body MatchRequest true "Match Options"
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]any "Completed pairings or pending reports block the rematch"
// @Router /tenants/{tenantID}/admin/match [post]
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tenantID := GetTenantID(r.Context())
	err := h.sched.ForceRematch(r.Context(), tenantID, req.Force, req.ActorID)
	if err != nil {
		var blocked *scheduler.RematchBlockedError
		switch {
		case errors.As(err, &blocked):
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":           "rematch blocked",
				"completed":       blocked.Completed,
				"pending_reports": blocked.PendingReports,
			})
		case errors.Is(err, scheduler.ErrNotEnoughSignups):
			respondError(w, http.StatusConflict, "not enough signups to match")
		default:
			slog.ErrorContext(r.Context(), "failed to run matching",
				logger.Error(err),
				logger.TenantID(tenantID),
			)
			respondError(w, http.StatusInternalServerError, "failed to run matching")
		}
		return
	}

	pairings, err := h.pairingService.List(r.Context(), tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list pairings",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to list pairings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pairings": pairings})
}

// ListPairings returns the week's pairings
// @Summary List pairings
// @Tags Admin
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} map[string]any
// @Router /tenants/{tenantID}/admin/pairings [get]
func (h *Handler) ListPairings(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	pairings, err := h.pairingService.List(r.Context(), tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list pairings",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to list pairings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pairings": pairings})
}

// CreatePairingRequest force-pairs members into a slot
type CreatePairingRequest struct {
	MemberA   string  `json:"member_a"`
	MemberB   string  `json:"member_b"`
	MemberC   *string `json:"member_c"`
	SlotLabel string  `json:"slot_label"`
	SlotRef   *string `json:"slot_ref"`
	ActorID   string  `json:"actor_id"`
}

// CreatePairing creates a manual pairing
// @Summary Create a manual pairing
// @Description Force-pairs two or three members into a slot outside the matching run
// @Tags Admin
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body CreatePairingRequest true "Pairing Data"
// @Success 201 {object} pairing.Pairing
// @Failure 400 {object} map[string]string
// @Router /tenants/{tenantID}/admin/pairings [post]
func (h *Handler) CreatePairing(w http.ResponseWriter, r *http.Request) {
	var req CreatePairingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MemberA == "" || req.MemberB == "" {
		respondError(w, http.StatusBadRequest, "member_a and member_b are required")
		return
	}

	tenantID := GetTenantID(r.Context())
	p, err := h.pairingService.CreateManual(r.Context(), tenantID,
		req.MemberA, req.MemberB, req.MemberC, req.SlotLabel, req.SlotRef, req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, pairing.ErrSelfPairing):
			respondError(w, http.StatusBadRequest, "pairing members must be distinct")
		default:
			slog.ErrorContext(r.Context(), "failed to create pairing",
				logger.Error(err),
				logger.TenantID(tenantID),
			)
			respondError(w, http.StatusInternalServerError, "failed to create pairing")
		}
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// ListSignups returns the week's signups
// @Summary List signups
// @Tags Admin
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} map[string]any
// @Router /tenants/{tenantID}/admin/signups [get]
func (h *Handler) ListSignups(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	members, err := h.rosterService.Signups(r.Context(), tenantID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list signups",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to list signups")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"signups": members})
}

// AddSignupRequest signs a member up on their behalf
type AddSignupRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Region      string `json:"region"`
	ActorID     string `json:"actor_id"`
}

// AddSignup signs up a member regardless of the window state
// @Summary Add a signup
// @Description Signs a member up on their behalf, bypassing the window
// @Tags Admin
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body AddSignupRequest true "Signup Data"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/admin/signups [post]
func (h *Handler) AddSignup(w http.ResponseWriter, r *http.Request) {
	var req AddSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tenantID := GetTenantID(r.Context())
	err := h.rosterService.AddSignup(r.Context(), tenantID, req.UserID, req.DisplayName,
		roster.Region(req.Region), req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrInvalidRegion):
			respondError(w, http.StatusBadRequest, "invalid region")
		case errors.Is(err, roster.ErrAlreadySignedUp):
			respondError(w, http.StatusConflict, "already signed up this week")
		default:
			slog.ErrorContext(r.Context(), "failed to add signup",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.UserID(req.UserID),
			)
			respondError(w, http.StatusInternalServerError, "failed to add signup")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "signed_up"})
}

// ClearSignups wipes the week's signup list
// @Summary Clear signups
// @Tags Admin
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param actor_id query string false "Acting Moderator ID"
// @Success 200 {object} map[string]string
// @Router /tenants/{tenantID}/admin/signups [delete]
func (h *Handler) ClearSignups(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())
	if err := h.rosterService.ClearSignups(r.Context(), tenantID, r.URL.Query().Get("actor_id")); err != nil {
		slog.ErrorContext(r.Context(), "failed to clear signups",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to clear signups")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// PenaltyRequest applies a no-show penalty without quoting a report ID
type PenaltyRequest struct {
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id"`
}

// ApplyPenalty penalizes a member. Their newest pending report, when one
// exists, is resolved as penalized along the way.
// @Summary Apply a no-show penalty
// @Description Penalizes a member; their newest pending report is resolved as penalized when one exists
// @Tags Admin
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body PenaltyRequest true "Penalty Data"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/admin/penalties [post]
func (h *Handler) ApplyPenalty(w http.ResponseWriter, r *http.Request) {
	var req PenaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tenantID := GetTenantID(r.Context())
	expiresAt, err := h.reportService.Penalize(r.Context(), tenantID, req.UserID, req.ActorID)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrMemberNotFound):
			respondError(w, http.StatusNotFound, "member not found")
		default:
			slog.ErrorContext(r.Context(), "failed to apply penalty",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.UserID(req.UserID),
			)
			respondError(w, http.StatusInternalServerError, "failed to apply penalty")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":             "penalized",
		"penalty_expires_at": expiresAt,
	})
}

// RemovePenalty clears a member's active penalty
// @Summary Remove a penalty
// @Tags Admin
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Param actor_id query string false "Acting Moderator ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/admin/penalties/{userID} [delete]
func (h *Handler) RemovePenalty(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	tenantID := GetTenantID(r.Context())

	err := h.reportService.RemovePenalty(r.Context(), tenantID, userID, r.URL.Query().Get("actor_id"))
	if err != nil {
		switch {
		case errors.Is(err, report.ErrNoActivePenalty):
			respondError(w, http.StatusNotFound, "no active penalty")
		default:
			slog.ErrorContext(r.Context(), "failed to remove penalty",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.UserID(userID),
			)
			respondError(w, http.StatusInternalServerError, "failed to remove penalty")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "penalty_removed"})
}

// ResolveReportRequest closes out a pending report
type ResolveReportRequest struct {
	Outcome string `json:"outcome"`
	Note    string `json:"note"`
	ActorID string `json:"actor_id"`
}

// ResolveReport resolves a pending no-show report
// @Summary Resolve a report
// @Description Closes a pending no-show report as penalized or dismissed
// @Tags Admin
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param reportID path string true "Report ID"
// @Param request body ResolveReportRequest true "Resolution Data"
// @Success 200 {object} report.Report
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/admin/reports/{reportID}/resolve [post]
func (h *Handler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	var req ResolveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reportID := chi.URLParam(r, "reportID")
	tenantID := GetTenantID(r.Context())

	resolved, err := h.reportService.Resolve(r.Context(), tenantID, reportID,
		report.Outcome(req.Outcome), req.ActorID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrInvalidOutcome):
			respondError(w, http.StatusBadRequest, "outcome must be penalized or dismissed")
		case errors.Is(err, report.ErrReportNotFound):
			respondError(w, http.StatusNotFound, "pending report not found")
		case errors.Is(err, report.ErrReportNotPending):
			respondError(w, http.StatusConflict, "report is no longer pending")
		default:
			slog.ErrorContext(r.Context(), "failed to resolve report",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.ReportID(reportID),
			)
			respondError(w, http.StatusInternalServerError, "failed to resolve report")
		}
		return
	}

	respondJSON(w, http.StatusOK, resolved)
}
