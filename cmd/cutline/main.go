package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/tlowery/cutline/internal/api/espn"
	"github.com/tlowery/cutline/internal/api/sleeper"
	"github.com/tlowery/cutline/internal/config"
	"github.com/tlowery/cutline/internal/identity"
	"github.com/tlowery/cutline/internal/ranking"
	"github.com/tlowery/cutline/internal/refresh"
	"github.com/tlowery/cutline/internal/scheduler"
	"github.com/tlowery/cutline/internal/server"
	"github.com/tlowery/cutline/internal/service"
	"github.com/tlowery/cutline/internal/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Error running application", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Error("Error loading .env file", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing store", "error", err)
		}
	}()

	clock := clockwork.NewRealClock()

	sources := []service.Source{
		sleeper.NewAdapter(sleeper.NewClient(logger), clock, cfg.Refresh.StatsWait, logger),
		espn.NewAdapter(espn.NewClient(cfg.ESPN, logger), logger),
	}

	identifier := cfg.Operator.DisplayName
	if identifier == "" {
		stored, err := store.Setting(context.Background(), "operator_name")
		if err != nil {
			logger.Error("Error reading operator name", "error", err)
		} else {
			identifier = stored
		}
	}

	resolver := identity.NewResolver(identifier, store, logger)
	aggregator := service.NewAggregator(sources, resolver, clock, cfg, logger)
	engine := ranking.NewEngine(logger)

	coordinator := refresh.NewCoordinator(aggregator, store, engine, clock, cfg.Refresh, logger)
	defer coordinator.Close()

	for _, ref := range aggregator.ConfiguredLeagues() {
		coordinator.Track(ref)
	}

	// Digests land in the log until a delivery channel is wired up.
	publish := func(digest string) error {
		logger.Info("Weekly digest", "digest", digest)
		return nil
	}

	sched, err := scheduler.NewScheduler(coordinator, clock, cfg.Refresh, publish, logger)
	if err != nil {
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}
	defer func() {
		err := sched.Stop()
		if err != nil {
			logger.Error("Error stopping scheduler", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(coordinator, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Error starting HTTP server", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
