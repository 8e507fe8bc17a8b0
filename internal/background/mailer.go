package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// emailJob is a deferred send. The function carries everything needed to
// build and deliver one message.
type emailJob struct {
	name string
	send func(ctx context.Context) error
}

// Mailer delivers email off the request path. Jobs are queued on a bounded
// channel and retried with exponential backoff; when the queue is full the
// job is dropped and logged rather than blocking a handler.
type Mailer struct {
	jobs       chan emailJob
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewMailer(queueSize, maxRetries int, logger *slog.Logger) *Mailer {
	if queueSize <= 0 {
		queueSize = 256
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Mailer{
		jobs:       make(chan emailJob, queueSize),
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		logger:     logger,
	}
}

// Enqueue schedules a send. It never blocks; a full queue drops the job.
func (m *Mailer) Enqueue(name string, send func(ctx context.Context) error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.logger.Warn("mailer stopped, dropping email", "job", name)
		return
	}
	m.mu.Unlock()

	select {
	case m.jobs <- emailJob{name: name, send: send}:
	default:
		m.logger.Error("mail queue full, dropping email", "job", name)
	}
}

// Start runs the delivery worker until ctx is cancelled.
func (m *Mailer) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.logger.Info("mailer started")
		for {
			select {
			case <-ctx.Done():
				m.logger.Info("mailer stopped")
				return
			case job := <-m.jobs:
				m.deliver(ctx, job)
			}
		}
	}()
}

// Stop prevents further enqueues and waits for the worker to exit. The
// context passed to Start must be cancelled before calling Stop.
func (m *Mailer) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Mailer) deliver(ctx context.Context, job emailJob) {
	delay := m.baseDelay
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		err := job.send(ctx)
		if err == nil {
			return
		}
		if attempt == m.maxRetries {
			m.logger.Error("email delivery failed, giving up",
				"job", job.name, "attempts", attempt, "error", err)
			return
		}
		m.logger.Warn("email delivery failed, retrying",
			"job", job.name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}
