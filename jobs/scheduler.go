package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenaforge/esports-platform/services"
	"github.com/go-co-op/gocron/v2"
)

const sweepInterval = time.Minute

// SweepScheduler runs the go-live sweep on a fixed interval: every OPEN
// tournament whose start time has passed gets an OPEN→LIVE attempt.
type SweepScheduler struct {
	sched     gocron.Scheduler
	lifecycle *services.LifecycleService
	logger    *slog.Logger
}

func NewSweepScheduler(lifecycle *services.LifecycleService, logger *slog.Logger) (*SweepScheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &SweepScheduler{sched: sched, lifecycle: lifecycle, logger: logger}, nil
}

func (s *SweepScheduler) Start(ctx context.Context) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() {
			if _, sweepErr := s.lifecycle.SweepDueTournaments(ctx); sweepErr != nil {
				s.logger.Error("go-live sweep failed", slog.Any("error", sweepErr))
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule go-live sweep: %w", err)
	}

	s.sched.Start()
	s.logger.Info("go-live sweep scheduled", slog.Duration("interval", sweepInterval))
	return nil
}

func (s *SweepScheduler) Stop() error {
	return s.sched.Shutdown()
}
