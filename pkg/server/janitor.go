package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper deletes checkpoints older than maxAgeDays and returns how many went.
type Sweeper interface {
	DeleteExpired(ctx context.Context, maxAgeDays int) (int, error)
}

// Janitor periodically removes expired checkpoints.
type Janitor struct {
	sweeper    Sweeper
	interval   time.Duration
	maxAgeDays int
}

// NewJanitor returns nil when interval <= 0; a nil Janitor's Run returns at once.
func NewJanitor(sweeper Sweeper, interval time.Duration, maxAgeDays int) *Janitor {
	if sweeper == nil || interval <= 0 {
		return nil
	}
	return &Janitor{sweeper: sweeper, interval: interval, maxAgeDays: maxAgeDays}
}

func (j *Janitor) Run(ctx context.Context) error {
	if j == nil {
		return nil
	}
	log.Info().Dur("interval", j.interval).Int("max_age_days", j.maxAgeDays).Msg("starting checkpoint janitor")
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.sweepOnce(ctx)
		}
	}
}

func (j *Janitor) sweepOnce(ctx context.Context) int {
	deleted, err := j.sweeper.DeleteExpired(ctx, j.maxAgeDays)
	if err != nil {
		log.Error().Err(err).Int("deleted", deleted).Msg("checkpoint sweep failed")
		return deleted
	}
	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("deleted expired checkpoints")
	}
	return deleted
}
