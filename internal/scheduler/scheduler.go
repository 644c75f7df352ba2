package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/weather"
)

const refreshTimeout = 30 * time.Second

// Sweeper removes expired entries from the ephemeral cache.
type Sweeper interface {
	CleanupExpired() int
}

// Refresher re-fetches a forecast and writes it through both tiers.
type Refresher interface {
	Refresh(ctx context.Context, key weather.Key) error
}

// Scheduler runs the background jobs: the ephemeral cache sweep and the optional
// warm-up of configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger,
	}
}

// ScheduleSweep runs sweeper.CleanupExpired every interval.
func (s *Scheduler) ScheduleSweep(interval time.Duration, sweeper Sweeper) error {
	_, err := s.scheduler.Every(interval).Do(func() {
		if n := sweeper.CleanupExpired(); n > 0 {
			s.logger.Debug("swept expired cache entries", zap.Int("count", n))
		}
	})
	return err
}

// ScheduleWarmUp refreshes every location in locations every interval.
func (s *Scheduler) ScheduleWarmUp(interval time.Duration, locations []weather.Key, refresher Refresher) error {
	if len(locations) == 0 {
		s.logger.Info("scheduler: no warm locations configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.logger.Info("scheduler: running forecast warm-up job", zap.Int("locations", len(locations)))

		var wg sync.WaitGroup
		for _, loc := range locations {
			loc := loc
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
				defer cancel()

				if err := refresher.Refresh(ctx, loc); err != nil {
					s.logger.Warn("scheduler: refresh failed", zap.String("key", loc.String()), zap.Error(err))
				}
			}()
		}
		wg.Wait()
		s.logger.Info("scheduler: completed forecast warm-up job")
	})
	return err
}

// Start starts the underlying scheduler. Jobs run once immediately, then on their interval.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
