package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nurpe/amc-schedule/internal/auth"
	"github.com/nurpe/amc-schedule/internal/cache"
	"github.com/nurpe/amc-schedule/internal/config"
	"github.com/nurpe/amc-schedule/internal/db"
	"github.com/nurpe/amc-schedule/internal/events"
	"github.com/nurpe/amc-schedule/internal/excel"
	httphandler "github.com/nurpe/amc-schedule/internal/http"
	"github.com/nurpe/amc-schedule/internal/http/middleware"
	"github.com/nurpe/amc-schedule/internal/logger"
	"github.com/nurpe/amc-schedule/internal/metrics"
	"github.com/nurpe/amc-schedule/internal/pdf"
	"github.com/nurpe/amc-schedule/internal/repository"
	"github.com/nurpe/amc-schedule/internal/schedule"
	"github.com/nurpe/amc-schedule/internal/service"
	"github.com/nurpe/amc-schedule/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	resultRepo := repository.NewResultRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)

	m := metrics.New()

	deps := service.ScheduleDeps{
		Calculator: service.NewCalculator(schedule.NewAssembler(log), log),
		Results:    resultRepo,
		Metrics:    m,
		Settings:   cfg.Schedule,
		Batch:      cfg.Batch,
		Log:        log,
	}
	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, result cache disabled")
		} else {
			defer client.Close()
			deps.Cache = cache.NewResultCache(client, cfg.Redis.TTL)
		}
	}

	publisher := events.New(cfg.Kafka, log)
	defer publisher.Close()
	deps.Publisher = publisher

	exportDeps := service.ExportDeps{
		Excel:   excel.NewGenerator(),
		PDF:     pdf.NewGenerator(),
		Metrics: m,
		Log:     log,
	}
	artifacts, err := storage.New(cfg.Minio, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init artifact storage")
	}
	if artifacts != nil {
		exportDeps.Store = artifacts
	}

	schedules := service.NewScheduleService(deps)
	payments := service.NewPaymentService(paymentRepo, log, nil)
	exportDeps.Payments = payments
	exports := service.NewExportService(exportDeps)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	if tokenParser == nil {
		log.Warn().Msg("JWT_ACCESS_SECRET is empty, authentication disabled")
	}
	handler := httphandler.NewHandler(schedules, payments, exports, log)
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), m.Handler(), cfg.Environment, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("starting amc schedule service")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
