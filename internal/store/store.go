// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/propdesk/internal/domain"
)

// Repository persists device sessions and the identity bound to them.
type Repository interface {
	// GetSession retrieves a session by id. It returns nil, nil when absent.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// UpsertSession creates or replaces the identity and token of a session.
	UpsertSession(ctx context.Context, session *domain.Session) error

	// UpdateLastSeen updates the last_seen_at timestamp for a session.
	UpdateLastSeen(ctx context.Context, sessionID string, lastSeen time.Time) error

	// DeleteSession removes a session. Deleting an absent session is not an error.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListExpiredSessions returns sessions idle for longer than ttl.
	ListExpiredSessions(ctx context.Context, ttl time.Duration) ([]*domain.Session, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
