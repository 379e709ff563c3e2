package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	busyMaxRetries = 3
	busyBaseDelay  = 50 * time.Millisecond
)

// isConflictError reports SQLITE_BUSY and "database is locked" errors, the
// two forms of write contention that warrant a retry.
func isConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry runs fn, retrying write contention with exponential backoff
// (50ms, 100ms). Other errors are returned immediately.
func withBusyRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < busyMaxRetries; i++ {
		err = fn()
		if err == nil || !isConflictError(err) {
			return err
		}
		if i == busyMaxRetries-1 {
			break
		}

		delay := busyBaseDelay * time.Duration(1<<i)
		slog.Debug("Database locked, retrying",
			"op", op,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, busyMaxRetries, err)
}
