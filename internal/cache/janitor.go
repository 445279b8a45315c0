package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Janitor periodically purges expired entries from a Purger.
type Janitor struct {
	scheduler gocron.Scheduler
	purger    Purger
	logger    *slog.Logger
}

// NewJanitor schedules Purge every interval. Call Start to begin.
func NewJanitor(purger Purger, interval time.Duration, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		return nil, fmt.Errorf("purge interval must be positive, got %s", interval)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	j := &Janitor{scheduler: s, purger: purger, logger: logger}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.RunOnce, context.Background()),
		gocron.WithName("cache-purge"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create purge job: %w", err)
	}
	return j, nil
}

// RunOnce purges immediately.
func (j *Janitor) RunOnce(ctx context.Context) {
	removed, err := j.purger.Purge(ctx)
	if err != nil {
		j.logger.Warn("Cache purge failed", logfields.Error(err))
		return
	}
	if removed > 0 {
		j.logger.Debug("Purged expired cache entries", slog.Int("removed", removed))
	}
}

func (j *Janitor) Start() { j.scheduler.Start() }

// Stop shuts the scheduler down and waits for a running purge.
func (j *Janitor) Stop() error {
	return j.scheduler.Shutdown()
}
