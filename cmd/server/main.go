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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brewpair/brewpair/internal/audit"
	"github.com/brewpair/brewpair/internal/config"
	"github.com/brewpair/brewpair/internal/observability/logger"
	"github.com/brewpair/brewpair/internal/observability/metrics"
	"github.com/brewpair/brewpair/internal/observability/tracing"
	"github.com/brewpair/brewpair/internal/pairing"
	"github.com/brewpair/brewpair/internal/platform"
	"github.com/brewpair/brewpair/internal/presence"
	"github.com/brewpair/brewpair/internal/report"
	"github.com/brewpair/brewpair/internal/roster"
	"github.com/brewpair/brewpair/internal/schedule"
	"github.com/brewpair/brewpair/internal/scheduler"
	"github.com/brewpair/brewpair/internal/store/postgres"
	transportHTTP "github.com/brewpair/brewpair/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting brewpair pairing service")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	scheduleRepo := postgres.NewScheduleRepository(db)
	memberRepo := postgres.NewMemberRepository(db)
	signupRepo := postgres.NewSignupRepository(db)
	pairingRepo := postgres.NewPairingRepository(db)
	historyRepo := postgres.NewHistoryRepository(db)
	reportRepo := postgres.NewReportRepository(db)

	// Platform integration. The deployment attaches a real chat adapter;
	// standalone the service logs notifications and sees everyone as
	// present.
	var gateway platform.Gateway = platform.AllPresentGateway{}
	notifier := platform.NewLogNotifier(slog.Default())

	// Initialize services
	auditLogger := audit.NewSlogLogger()
	scheduleService := schedule.NewService(scheduleRepo, auditLogger)
	rosterService := roster.NewService(memberRepo, signupRepo, scheduleRepo, historyRepo, auditLogger)
	pairingService := pairing.NewService(pairingRepo, historyRepo, auditLogger)
	reportService := report.NewService(reportRepo, pairingRepo, memberRepo, auditLogger, cfg.Pairing.PenaltyWeeks)

	sched, err := scheduler.New(
		scheduleRepo,
		rosterService,
		pairingService,
		reportService,
		historyRepo,
		gateway,
		notifier,
		auditLogger,
		slog.Default(),
		meter,
		cfg.Pairing,
		cfg.Scheduler,
	)
	if err != nil {
		slog.Error("failed to initialize scheduler", logger.Error(err))
		os.Exit(1)
	}

	tracker := presence.NewTracker(pairingService, gateway, slog.Default(), cfg.Pairing.PresenceDebounce)
	defer tracker.Stop()

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		scheduleService,
		rosterService,
		pairingService,
		reportService,
		sched,
		tracker,
		auditLogger,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start weekly scheduler goroutine
	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()
	go sched.Run(schedCtx)

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopSched()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	slog.Info("migrations applied")
	return nil
}
