package background

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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestMailer_DeliversJob(t *testing.T) {
	m := NewMailer(8, 3, testLogger())
	m.baseDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	var sent atomic.Int32
	m.Enqueue("test", func(ctx context.Context) error {
		sent.Add(1)
		return nil
	})

	waitFor(t, func() bool { return sent.Load() == 1 })
}

func TestMailer_RetriesThenSucceeds(t *testing.T) {
	m := NewMailer(8, 3, testLogger())
	m.baseDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	var attempts atomic.Int32
	var succeeded atomic.Bool
	m.Enqueue("flaky", func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient failure")
		}
		succeeded.Store(true)
		return nil
	})

	waitFor(t, func() bool { return succeeded.Load() })
	assert.Equal(t, int32(3), attempts.Load())
}

func TestMailer_GivesUpAfterMaxRetries(t *testing.T) {
	m := NewMailer(8, 3, testLogger())
	m.baseDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	var attempts atomic.Int32
	m.Enqueue("doomed", func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("permanent failure")
	})

	// A later job still gets processed, proving the worker survived.
	var nextDelivered atomic.Bool
	m.Enqueue("next", func(ctx context.Context) error {
		nextDelivered.Store(true)
		return nil
	})

	waitFor(t, func() bool { return nextDelivered.Load() })
	assert.Equal(t, int32(3), attempts.Load())
}

func TestMailer_DropsWhenQueueFull(t *testing.T) {
	// Worker never started, so the queue fills and overflow is dropped.
	m := NewMailer(1, 3, testLogger())

	var delivered atomic.Int32
	job := func(ctx context.Context) error {
		delivered.Add(1)
		return nil
	}
	m.Enqueue("first", job)
	m.Enqueue("overflow", job)

	assert.Len(t, m.jobs, 1)
}

func TestMailer_RejectsAfterStop(t *testing.T) {
	m := NewMailer(8, 3, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	m.Stop()

	m.Enqueue("late", func(ctx context.Context) error { return nil })
	assert.Empty(t, m.jobs)
}
