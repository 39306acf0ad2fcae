package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fieldserve/backend/internal/amc"
	"github.com/fieldserve/backend/internal/audit"
	"github.com/fieldserve/backend/internal/automation"
	"github.com/fieldserve/backend/internal/cache"
	"github.com/fieldserve/backend/internal/config"
	httpapi "github.com/fieldserve/backend/internal/http"
	"github.com/fieldserve/backend/internal/notify"
	"github.com/fieldserve/backend/internal/reminder"
	"github.com/fieldserve/backend/internal/store"
	"github.com/fieldserve/backend/internal/ticketcode"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "fieldserve-backend").Logger()

	ctx := context.Background()
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer pg.Close()
	if err := pg.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to init schema")
	}

	data := cache.New(pg, cfg.CacheTTL, logger)
	auditLog := &audit.Logger{Gateway: pg, Logger: logger, DefaultActor: "automation"}
	codes := &ticketcode.Generator{Source: data, Logger: logger}
	monitor := &amc.Monitor{Data: data, Audit: auditLog, Logger: logger}
	engine := reminder.Engine{}
	scheduler := automation.New(data, auditLog, notify.LogTransport{Logger: logger}, monitor, engine, logger)
	scheduler.BackupEvery = time.Duration(cfg.BackupIntervalMinutes) * time.Minute

	if cfg.AutomationEnabled {
		interval := time.Duration(cfg.AutomationIntervalMinutes) * time.Minute
		scheduler.Start(ctx, interval)
	}

	router := httpapi.Router(cfg, data, codes, monitor, scheduler, engine, auditLog, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	scheduler.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
