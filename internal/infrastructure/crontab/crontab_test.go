package crontab

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/infrastructure/metrics"
	"github.com/alumunity/messaging-api/internal/infrastructure/redis"
)

type countingPresence struct {
	presence.Service
	calls int
	err   error
}

func (p *countingPresence) Sweep(context.Context, time.Time) (presence.SweepResult, error) {
	p.calls++
	return presence.SweepResult{ExpiredTyping: 1}, p.err
}

type fakeLocker struct {
	held bool
}

func (l *fakeLocker) WithLock(_ context.Context, name string, _ time.Duration, fn func() error) error {
	if l.held {
		return fmt.Errorf("%w: %s", redis.ErrLockNotAcquired, name)
	}
	return fn()
}

func TestSweepOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("without locker", func(t *testing.T) {
		svc := &countingPresence{}
		before := testutil.ToFloat64(metrics.PresenceSweepsTotal.WithLabelValues("ok"))
		NewCrontab(svc, nil, "* * * * *", zerolog.Nop()).sweep(ctx)
		assert.Equal(t, 1, svc.calls)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.PresenceSweepsTotal.WithLabelValues("ok")))
	})

	t.Run("lock held elsewhere", func(t *testing.T) {
		svc := &countingPresence{}
		before := testutil.ToFloat64(metrics.PresenceSweepsTotal.WithLabelValues("skipped"))
		NewCrontab(svc, &fakeLocker{held: true}, "* * * * *", zerolog.Nop()).sweep(ctx)
		assert.Zero(t, svc.calls)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.PresenceSweepsTotal.WithLabelValues("skipped")))
	})

	t.Run("store failure", func(t *testing.T) {
		svc := &countingPresence{err: errors.New("boom")}
		before := testutil.ToFloat64(metrics.PresenceSweepsTotal.WithLabelValues("error"))
		NewCrontab(svc, &fakeLocker{}, "* * * * *", zerolog.Nop()).sweep(ctx)
		assert.Equal(t, 1, svc.calls)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.PresenceSweepsTotal.WithLabelValues("error")))
	})
}

func TestRunRejectsBadSchedule(t *testing.T) {
	err := NewCrontab(&countingPresence{}, nil, "not a schedule", zerolog.Nop()).Run(context.Background())
	require.Error(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	svc := &countingPresence{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewCrontab(svc, nil, "* * * * *", zerolog.Nop()).Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("crontab did not stop")
	}
	assert.Equal(t, 1, svc.calls, "sweeps once on start")
}
