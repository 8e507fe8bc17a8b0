package background

import (
	"context"
	"log/slog"
	"time"
)

type sessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type tokenCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type attemptCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically removes expired sessions, one-time tokens and
// login attempt records.
type CleanupManager struct {
	sessions sessionCleaner
	tokens   tokenCleaner
	attempts attemptCleaner
	interval time.Duration
	logger   *slog.Logger
}

func NewCleanupManager(sessions sessionCleaner, tokens tokenCleaner, attempts attemptCleaner, interval time.Duration, logger *slog.Logger) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		sessions: sessions,
		tokens:   tokens,
		attempts: attempts,
		interval: interval,
		logger:   logger,
	}
}

// Start runs cleanup on a ticker until ctx is cancelled. One pass runs
// immediately on startup.
func (c *CleanupManager) Start(ctx context.Context) {
	go func() {
		c.logger.Info("cleanup manager started", "interval", c.interval)
		c.runOnce(ctx)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("cleanup manager stopped")
				return
			case <-ticker.C:
				c.runOnce(ctx)
			}
		}
	}()
}

func (c *CleanupManager) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if n, err := c.sessions.CleanupExpired(runCtx); err != nil {
		c.logger.Error("session cleanup failed", "error", err)
	} else if n > 0 {
		c.logger.Info("expired sessions removed", "count", n)
	}

	if n, err := c.tokens.CleanupExpired(runCtx); err != nil {
		c.logger.Error("token cleanup failed", "error", err)
	} else if n > 0 {
		c.logger.Info("expired tokens removed", "count", n)
	}

	if n, err := c.attempts.DeleteExpired(runCtx); err != nil {
		c.logger.Error("login attempt cleanup failed", "error", err)
	} else if n > 0 {
		c.logger.Info("expired login attempts removed", "count", n)
	}
}
