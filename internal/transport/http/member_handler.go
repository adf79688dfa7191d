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
	"strconv"

	"github.com/brewpair/brewpair/internal/observability/logger"
	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/report"
	"github.com/brewpair/brewpair/internal/roster"
)

// JoinRequest represents a weekly opt-in
type JoinRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Region      string `json:"region"`
}

// Join opts a member in for the current week
// @Summary Join the weekly roster
// @Description Opts a member in for this week's pairing while the signup window is open
// @Tags Roster
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body JoinRequest true "Signup Data"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]any "Member carries an active penalty"
// @Failure 409 {object} map[string]string "Window closed or already signed up"
// @Router /tenants/{tenantID}/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tenantID := GetTenantID(r.Context())
	err := h.rosterService.Join(r.Context(), tenantID, req.UserID, req.DisplayName, roster.Region(req.Region))
	if err != nil {
		var penalized *roster.PenalizedError
		switch {
		case errors.Is(err, roster.ErrInvalidRegion):
			respondError(w, http.StatusBadRequest, "invalid region")
		case errors.Is(err, roster.ErrWindowClosed):
			respondError(w, http.StatusConflict, "signup window is closed")
		case errors.Is(err, roster.ErrAlreadySignedUp):
			respondError(w, http.StatusConflict, "already signed up this week")
		case errors.As(err, &penalized):
			respondJSON(w, http.StatusForbidden, map[string]any{
				"error":              "penalized",
				"penalty_expires_at": penalized.ExpiresAt,
			})
		default:
			slog.ErrorContext(r.Context(), "failed to join",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.UserID(req.UserID),
			)
			respondError(w, http.StatusInternalServerError, "failed to join")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "signed_up"})
}

// LeaveRequest represents a weekly opt-out
type LeaveRequest struct {
	UserID string `json:"user_id"`
}

// Leave withdraws a member's signup
// @Summary Leave the weekly roster
// @Description Withdraws the member's signup while the window is still open
// @Tags Roster
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body LeaveRequest true "Withdrawal Data"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tenantID := GetTenantID(r.Context())
	if err := h.rosterService.Leave(r.Context(), tenantID, req.UserID); err != nil {
		switch {
		case errors.Is(err, roster.ErrWindowClosed):
			respondError(w, http.StatusConflict, "signup window is closed")
		case errors.Is(err, roster.ErrNotSignedUp):
			respondError(w, http.StatusNotFound, "not signed up this week")
		default:
			slog.ErrorContext(r.Context(), "failed to leave",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.UserID(req.UserID),
			)
			respondError(w, http.StatusInternalServerError, "failed to leave")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// CompleteRequest marks the caller's pairing as done
type CompleteRequest struct {
	UserID string `json:"user_id"`
}

// Complete marks the caller's pairing complete. Completing an
// already-completed pairing is not an error; the existing record comes
// back unchanged.
// @Summary Complete a pairing
// @Description Marks this week's pairing of the calling member as completed
// @Tags Pairings
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body CompleteRequest true "Completion Data"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/complete [post]
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tenantID := GetTenantID(r.Context())
	p, err := h.pairingService.CompleteForUser(r.Context(), tenantID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, pairing.ErrPairingNotFound):
			respondError(w, http.StatusNotFound, "no pairing this week")
		case errors.Is(err, pairing.ErrAlreadyCompleted):
			respondJSON(w, http.StatusOK, map[string]any{
				"status":  "already_completed",
				"pairing": p,
			})
		default:
			slog.ErrorContext(r.Context(), "failed to complete pairing",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.UserID(req.UserID),
			)
			respondError(w, http.StatusInternalServerError, "failed to complete pairing")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"pairing": p,
	})
}

// ReportRequest files a no-show report
type ReportRequest struct {
	ReporterID string `json:"reporter_id"`
	ReportedID string `json:"reported_id"`
}

// FileReport files a no-show report against the caller's partner
// @Summary File a no-show report
// @Description Reports the caller's assigned partner for not showing up
// @Tags Reports
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body ReportRequest true "Report Data"
// @Success 200 {object} report.Report "Existing pending report"
// @Success 201 {object} report.Report
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/report [post]
func (h *Handler) FileReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReporterID == "" || req.ReportedID == "" {
		respondError(w, http.StatusBadRequest, "reporter_id and reported_id are required")
		return
	}

	tenantID := GetTenantID(r.Context())
	rep, created, err := h.reportService.File(r.Context(), tenantID, req.ReporterID, req.ReportedID)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrSelfReport):
			respondError(w, http.StatusBadRequest, "cannot report yourself")
		case errors.Is(err, report.ErrNoPairing):
			respondError(w, http.StatusNotFound, "no pairing this week")
		case errors.Is(err, report.ErrNotYourPartner):
			respondError(w, http.StatusBadRequest, "reported member is not your assigned partner")
		default:
			slog.ErrorContext(r.Context(), "failed to file report",
				logger.Error(err),
				logger.TenantID(tenantID),
				logger.UserID(req.ReporterID),
			)
			respondError(w, http.StatusInternalServerError, "failed to file report")
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, rep)
}

// PresenceRequest carries a slot presence event from the platform
// integration
type PresenceRequest struct {
	UserID string `json:"user_id"`
}

// Presence forwards a presence change to the completion tracker. Always
// accepted: the tracker decides whether it matters.
// @Summary Report slot presence
// @Description Forwards a platform presence event to the completion tracker
// @Tags Pairings
// @Accept json
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param request body PresenceRequest true "Presence Event"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /tenants/{tenantID}/presence [post]
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	h.tracker.HandlePresence(r.Context(), GetTenantID(r.Context()), req.UserID)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Status reports a member's current-week state, including their pairing
// when one exists
// @Summary Member weekly status
// @Description Returns the member's signup and penalty state plus their pairing when matched
// @Tags Roster
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param user_id query string true "User ID"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /tenants/{tenantID}/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	tenantID := GetTenantID(r.Context())
	st, err := h.rosterService.Status(r.Context(), tenantID, userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load status",
			logger.Error(err),
			logger.TenantID(tenantID),
			logger.UserID(userID),
		)
		respondError(w, http.StatusInternalServerError, "failed to load status")
		return
	}

	resp := map[string]any{"status": st}
	p, err := h.pairingService.ForUser(r.Context(), tenantID, userID)
	if err == nil {
		resp["pairing"] = p
	} else if !errors.Is(err, pairing.ErrPairingNotFound) {
		slog.ErrorContext(r.Context(), "failed to load pairing",
			logger.Error(err),
			logger.TenantID(tenantID),
			logger.UserID(userID),
		)
		respondError(w, http.StatusInternalServerError, "failed to load status")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Leaderboard returns completed-chat counts, most chats first
// @Summary Completed-chat leaderboard
// @Description Ranks members by completed coffee chats over the stored history
// @Tags Roster
// @Produce json
// @Param tenantID path string true "Tenant ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /tenants/{tenantID}/leaderboard [get]
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	tenantID := GetTenantID(r.Context())
	counts, err := h.rosterService.Leaderboard(r.Context(), tenantID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load leaderboard",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"leaderboard": counts})
}
