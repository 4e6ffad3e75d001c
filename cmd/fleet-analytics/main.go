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

	"fleet-analytics-service/internal/auth"
	"fleet-analytics-service/internal/cache"
	"fleet-analytics-service/internal/config"
	"fleet-analytics-service/internal/db"
	httphandler "fleet-analytics-service/internal/http"
	"fleet-analytics-service/internal/http/middleware"
	"fleet-analytics-service/internal/logger"
	"fleet-analytics-service/internal/metrics"
	"fleet-analytics-service/internal/model"
	"fleet-analytics-service/internal/repository"
	"fleet-analytics-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	appMetrics := metrics.NewManager(metrics.WithRuntimeCollectors())
	dropdowns := cache.New[model.DropdownSource](cfg.Reports.DropdownCacheTTL,
		cache.WithName("dropdowns"),
		cache.WithObserver(appMetrics),
	)

	eventRepo := repository.NewEventRepository(database)
	tripRepo := repository.NewTripRepository(database)
	reportService := service.NewReportService(eventRepo, tripRepo, dropdowns, appMetrics, service.Options{
		DriverRangeDays:   cfg.Reports.DriverDefaultRangeDays,
		VehicleRangeDays:  cfg.Reports.VehicleDefaultRangeDays,
		MaxRangeDays:      cfg.Reports.MaxRangeDays,
		DriverEventLimit:  cfg.Reports.DriverEventLimit,
		VehicleEventLimit: cfg.Reports.VehicleEventLimit,
		TripBatchSize:     cfg.Reports.TripBatchSize,
	})

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	if !tokenParser.Enabled() {
		appLogger.Warn().Msg("JWT_ACCESS_SECRET not set, report routes are open")
	}

	handler := httphandler.NewHandler(reportService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, httphandler.RouterOptions{
		Environment:        cfg.Environment,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		Metrics:            appMetrics,
		Logger:             appLogger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		appLogger.Info().Str("addr", addr).Msg("starting fleet analytics service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
