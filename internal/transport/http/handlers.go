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

// @title Brewpair API
// @version 1.0.0
// @description Multi-tenant weekly coffee-chat pairing service
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /api/v1

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/presence"
	"github.com/brewpair/brewpair/internal/report"
	"github.com/brewpair/brewpair/internal/roster"
	"github.com/brewpair/brewpair/internal/schedule"
	"github.com/brewpair/brewpair/internal/scheduler"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	scheduleService *schedule.Service
	rosterService   *roster.Service
	pairingService  *pairing.Service
	reportService   *report.Service
	sched           *scheduler.Scheduler
	tracker         *presence.Tracker
	auditLogger     audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	scheduleService *schedule.Service,
	rosterService *roster.Service,
	pairingService *pairing.Service,
	reportService *report.Service,
	sched *scheduler.Scheduler,
	tracker *presence.Tracker,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		scheduleService: scheduleService,
		rosterService:   rosterService,
		pairingService:  pairingService,
		reportService:   reportService,
		sched:           sched,
		tracker:         tracker,
		auditLogger:     auditLogger,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes, all tenant-scoped
	r.Route("/api/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Use(TenantMiddleware)
		r.Use(RequireTenant)

		// Member endpoints
		r.Post("/join", h.Join)
		r.Post("/leave", h.Leave)
		r.Post("/complete", h.Complete)
		r.Post("/report", h.FileReport)
		r.Post("/presence", h.Presence)
		r.Get("/status", h.Status)
		r.Get("/leaderboard", h.Leaderboard)

		// Schedule setup
		r.Get("/schedule", h.GetSchedule)
		r.Put("/schedule", h.UpdateSchedule)

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reset", h.Reset)
			r.Post("/match", h.Match)
			r.Get("/pairings", h.ListPairings)
			r.Post("/pairings", h.CreatePairing)
			r.Get("/signups", h.ListSignups)
			r.Post("/signups", h.AddSignup)
			r.Delete("/signups", h.ClearSignups)
			r.Post("/penalties", h.ApplyPenalty)
			r.Delete("/penalties/{userID}", h.RemovePenalty)
			r.Post("/reports/{reportID}/resolve", h.ResolveReport)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "brewpair",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
