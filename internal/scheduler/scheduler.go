// Package scheduler runs the recurring jobs around a refresh coordinator:
// periodic snapshot refreshes, discovery sweeps, and the weekly digest once
// the fantasy week has flipped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/tlowery/cutline/internal/config"
	"github.com/tlowery/cutline/internal/refresh"
	"github.com/tlowery/cutline/internal/service"
)

// jobTimeout bounds a single run so a hung platform cannot pin a job slot.
const jobTimeout = 2 * time.Minute

// Scheduler drives the coordinator on a fixed cadence. Digest text goes to
// publish, which the caller wires to whatever delivery channel it has.
type Scheduler struct {
	s           gocron.Scheduler
	coordinator *refresh.Coordinator
	cfg         config.Refresh
	publish     func(string) error
	logger      *slog.Logger
}

func NewScheduler(coordinator *refresh.Coordinator, clock clockwork.Clock, cfg config.Refresh, publish func(string) error, logger *slog.Logger) (*Scheduler, error) {
	location, err := time.LoadLocation("America/Chicago") // CDT
	if err != nil {
		logger.Error("Failed to load location", "error", err)
		location = time.UTC
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(location),
		gocron.WithClock(clock),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		s:           s,
		coordinator: coordinator,
		cfg:         cfg,
		publish:     publish,
		logger:      logger,
	}, nil
}

func (s *Scheduler) Start() error {
	var err error

	// Snapshot refresh - every refresh interval
	_, err = s.s.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.refreshLeagues),
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh job: %w", err)
	}

	// League discovery sweep - every discovery TTL
	_, err = s.s.NewJob(
		gocron.DurationJob(s.cfg.DiscoveryTTL),
		gocron.NewTask(s.rediscoverLeagues),
	)
	if err != nil {
		return fmt.Errorf("failed to create discovery job: %w", err)
	}

	// Weekly digest - Tuesday 7:30 CDT, after Monday night wraps
	_, err = s.s.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Tuesday), gocron.NewAtTimes(gocron.NewAtTime(7, 30, 0))),
		gocron.NewTask(s.sendWeeklyDigests),
	)
	if err != nil {
		return fmt.Errorf("failed to create digest job: %w", err)
	}

	s.s.Start()
	return nil
}

func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

func (s *Scheduler) refreshLeagues() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.coordinator.RefreshAll(ctx)
}

func (s *Scheduler) rediscoverLeagues() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.coordinator.Leagues(ctx); err != nil {
		s.logger.Error("Failed to refresh league discovery", "error", err)
	}
}

func (s *Scheduler) sendWeeklyDigests() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	for _, ref := range s.coordinator.Tracked() {
		ranking, err := s.coordinator.CurrentRanking(ctx, ref, 0)
		if err != nil {
			s.logger.Error("Failed to build weekly digest", "league", ref.Key(), "error", err)
			continue
		}
		if err := s.publish(service.FormatRankingDigest(ranking)); err != nil {
			s.logger.Error("Failed to publish weekly digest", "league", ref.Key(), "error", err)
		}
	}
}
