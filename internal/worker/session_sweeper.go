package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/orderdesk/internal/observability/metrics"
	"github.com/yourorg/orderdesk/internal/security/session"
)

// SessionSweeper periodically prunes expired session records from the
// registry and refreshes the live-session gauge. Redis records already
// expire via TTL; the sweep keeps the in-memory registry and the per-user
// indexes tidy.
type SessionSweeper struct {
	sessions *session.Manager
	logger   *slog.Logger
	interval time.Duration
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(sessions *session.Manager, logger *slog.Logger, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionSweeper{
		sessions: sessions,
		logger:   logger,
		interval: interval,
	}
}

// Start runs the sweep loop until the context is cancelled
func (w *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session sweeper started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) {
	pruned, err := w.sessions.PruneExpired(ctx)
	if err != nil {
		w.logger.Error("session sweep failed", slog.String("error", err.Error()))
		return
	}

	count, err := w.sessions.Count(ctx)
	if err != nil {
		w.logger.Error("session count failed", slog.String("error", err.Error()))
		return
	}
	metrics.SetActiveSessions(count)

	if pruned > 0 {
		w.logger.Info("pruned expired sessions",
			slog.Int("pruned", pruned),
			slog.Int("active", count),
		)
	}
}
