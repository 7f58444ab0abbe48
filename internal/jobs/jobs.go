// Package jobs runs the background sweeps: releasing numbers for lapsed
// subscriptions and reaping stale synthesized audio.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Benrobo/nexusai-sub000/pkg/logger"
)

// Schedules use standard 5-field cron expressions.
const (
	graceSweepSchedule = "*/10 * * * *" // every 10 minutes
	audioSweepSchedule = "15 3 * * *"   // daily, off-peak
)

// staleAudioMaxAge is how long an unused clip survives before the sweep
// removes it.
const staleAudioMaxAge = 30 * 24 * time.Hour

const jobTimeout = 5 * time.Minute

// GraceSweeper releases numbers for subscriptions past their grace period.
type GraceSweeper interface {
	SweepGracePeriods(ctx context.Context) (int, error)
}

// AudioSweeper deletes synthesized clips nobody has played recently.
type AudioSweeper interface {
	CleanupStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// Runner owns the cron scheduler and its registered sweeps.
type Runner struct {
	cron *cron.Cron
	log  *slog.Logger
}

func NewRunner(baseLog *slog.Logger, grace GraceSweeper, audio AudioSweeper) (*Runner, error) {
	log := logger.Component(baseLog, "jobs")
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	if _, err := c.AddFunc(graceSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		n, err := grace.SweepGracePeriods(logger.With(ctx, log))
		if err != nil {
			log.Error("grace period sweep failed", "err", err)
			return
		}
		if n > 0 {
			log.Info("grace period sweep released numbers", "count", n)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(audioSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		n, err := audio.CleanupStale(logger.With(ctx, log), staleAudioMaxAge)
		if err != nil {
			log.Error("stale audio sweep failed", "err", err)
			return
		}
		if n > 0 {
			log.Info("stale audio sweep deleted clips", "count", n)
		}
	}); err != nil {
		return nil, err
	}

	return &Runner{cron: c, log: log}, nil
}

// Start begins scheduling. Non-blocking.
func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info("background jobs started",
		"grace_sweep", graceSweepSchedule,
		"audio_sweep", audioSweepSchedule,
	)
}

// Stop halts scheduling and waits for in-flight jobs.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
