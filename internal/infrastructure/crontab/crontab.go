package crontab

import (
	"context"
	"errors"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/infrastructure/metrics"
	"github.com/alumunity/messaging-api/internal/infrastructure/redis"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

const (
	CronJobTimeout = 30 * time.Second
	sweepLockName  = "messaging-api:presence-sweep"
)

// Locker serializes a job across instances. The redis client satisfies it.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error
}

// Crontab runs the periodic presence sweep.
type Crontab struct {
	ctab     *crontab.Crontab
	presence presence.Service
	locker   Locker
	schedule string
	log      zerolog.Logger
	now      func() time.Time
}

// NewCrontab builds the scheduler. locker may be nil on single instance deployments.
func NewCrontab(presenceService presence.Service, locker Locker, schedule string, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab:     crontab.New(),
		presence: presenceService,
		locker:   locker,
		schedule: schedule,
		log:      log.With().Str("component", "crontab").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run schedules the sweep and blocks until ctx ends.
func (c *Crontab) Run(ctx context.Context) error {
	// execute once on server start
	c.sweep(ctx)

	if err := c.ctab.AddJob(c.schedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.sweep(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add presence sweep job")
	}
	c.log.Info().Str("schedule", c.schedule).Msg("presence sweep scheduled")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) sweep(ctx context.Context) {
	run := func() error {
		result, err := c.presence.Sweep(ctx, c.now())
		if err != nil {
			return err
		}
		if result.ExpiredTyping > 0 || result.MarkedOffline > 0 {
			c.log.Info().
				Int64("expired_typing", result.ExpiredTyping).
				Int64("marked_offline", result.MarkedOffline).
				Msg("presence sweep")
		}
		return nil
	}

	var err error
	if c.locker != nil {
		err = c.locker.WithLock(ctx, sweepLockName, CronJobTimeout, run)
	} else {
		err = run()
	}

	switch {
	case err == nil:
		metrics.RecordPresenceSweep("ok")
	case errors.Is(err, redis.ErrLockNotAcquired):
		metrics.RecordPresenceSweep("skipped")
		c.log.Debug().Err(err).Msg("presence sweep skipped")
	default:
		metrics.RecordPresenceSweep("error")
		c.log.Error().Err(err).Msg("presence sweep failed")
	}
}
