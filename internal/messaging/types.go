// Package messaging reconciles the user directory with conversation
// summaries and runs per-contact conversation sessions with optimistic send.
package messaging

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrValidation marks a send or select rejected before any network call.
	ErrValidation = errors.New("validation failed")
	// ErrDirectoryUnavailable means the directory feed could not be fetched or decoded.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrReconcileInFlight is returned when a reconciliation is already running.
	ErrReconcileInFlight = errors.New("reconciliation already in flight")
)

// UnknownContactName is used for conversation-only contacts without a name.
const UnknownContactName = "Unknown user"

const tempIDPrefix = "tmp-"

// Contact is a messaging counterpart.
type Contact struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	Company     string `json:"company,omitempty"`
	Status      string `json:"status,omitempty"`
	UnreadCount int    `json:"unreadCount"`
}

// Summary is one entry of the conversation summary feed. Profile holds
// whatever counterpart fields the feed embedded.
type Summary struct {
	UserID      string
	UnreadCount int
	Profile     Contact
}

// Message is one conversation entry. Pending marks an optimistic message
// whose send has not settled yet.
type Message struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Pending    bool      `json:"pending,omitempty"`
}

// IsTemporaryID reports whether id was assigned locally to an optimistic message.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// CanonicalID renders a user id from either feed in one comparable form:
// numbers and numeric strings with the same integer value compare equal.
func CanonicalID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return canonicalString(t)
	case json.Number:
		return canonicalString(t.String())
	case float64:
		return canonicalFloat(t)
	case float32:
		return canonicalFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	default:
		return ""
	}
}

func canonicalString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Leading zeros and "+" are dropped so "007" and 7 agree.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

func canonicalFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
