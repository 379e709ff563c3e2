package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/propdesk/internal/domain"
)

const ttlWorkerInterval = time.Minute

// SessionStore is the part of the session repository the TTL worker needs.
type SessionStore interface {
	ListExpiredSessions(ctx context.Context, ttl time.Duration) ([]*domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// TTLConfig sets the idle limits enforced by the TTL worker.
type TTLConfig struct {
	ViewIdle   time.Duration
	SessionTTL time.Duration
}

// StartTTLWorker runs a background goroutine that periodically closes idle
// views and forgets expired sessions.
func StartTTLWorker(ctx context.Context, repo SessionStore, mgr *Manager, cfg TTLConfig) {
	ticker := time.NewTicker(ttlWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("TTL worker started", "interval", ttlWorkerInterval, "view_idle", cfg.ViewIdle, "session_ttl", cfg.SessionTTL)

		for {
			select {
			case <-ticker.C:
				cleanup(ctx, repo, mgr, cfg, time.Now())
			case <-ctx.Done():
				slog.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func cleanup(ctx context.Context, repo SessionStore, mgr *Manager, cfg TTLConfig, now time.Time) {
	if cfg.ViewIdle > 0 {
		if n := mgr.Sweep(cfg.ViewIdle, now); n > 0 {
			slog.Info("TTL worker closed idle views", "count", n)
		}
	}

	if cfg.SessionTTL <= 0 {
		return
	}
	expired, err := repo.ListExpiredSessions(ctx, cfg.SessionTTL)
	if err != nil {
		slog.Error("TTL worker failed to list expired sessions", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	slog.Info("TTL worker found expired sessions", "count", len(expired))
	for _, s := range expired {
		mgr.CloseSession(s.SessionID)
		if err := repo.DeleteSession(ctx, s.SessionID); err != nil {
			slog.Warn("TTL worker failed to delete session",
				"error", err,
				"user_id", s.Identity.UserID)
		}
	}
	slog.Info("TTL worker cleanup completed", "cleaned", len(expired))
}
