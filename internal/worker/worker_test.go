package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_RunsJobsUntilStopped(t *testing.T) {
	w := NewWorker(quietLogger())
	var calls atomic.Int32
	w.Register(Job{Name: "tick", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}})
	w.Register(Job{Name: "broken", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) error {
		return errors.New("boom")
	}})
	w.Register(Job{Name: "no-interval", Run: func(ctx context.Context) error { return nil }})

	w.Start()
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return w.Runs("broken") >= 1 }, time.Second, 5*time.Millisecond)
	w.Stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
	assert.Zero(t, w.Runs("no-interval"))
}

func TestPurgeExpiredTokens(t *testing.T) {
	var got time.Time
	job := PurgeExpiredTokens(time.Minute, func(ctx context.Context, now time.Time) (int64, error) {
		got = now
		return 3, nil
	}, quietLogger())

	assert.Equal(t, "purge_expired_tokens", job.Name)
	assert.NoError(t, job.Run(context.Background()))
	assert.WithinDuration(t, time.Now(), got, time.Second)

	failing := PurgeExpiredTokens(time.Minute, func(ctx context.Context, now time.Time) (int64, error) {
		return 0, errors.New("database is locked")
	}, quietLogger())
	assert.EqualError(t, failing.Run(context.Background()), "database is locked")
}
