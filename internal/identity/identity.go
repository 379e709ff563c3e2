// Package identity binds a browser device to the signed-in user through a
// session cookie, and tags each request with its browser tab.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/propdesk/internal/domain"
	"github.com/ashureev/propdesk/internal/store"
)

const (
	SessionCookieName = "propdesk_session"
	TabHeaderName     = "X-Propdesk-Tab-ID"
	DefaultTabID      = "default"
	sessionCookieAge  = 30 * 24 * time.Hour

	// lastSeenResolution limits how often request activity is written back.
	lastSeenResolution = time.Minute
)

type contextKey int

const (
	sessionKey contextKey = iota
	tabIDKey
)

var tabIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SessionFromContext returns the request's session, or nil if the device is
// not signed in.
func SessionFromContext(ctx context.Context) *domain.Session {
	if v, ok := ctx.Value(sessionKey).(*domain.Session); ok {
		return v
	}
	return nil
}

// TabIDFromContext returns the browser tab id of the request.
func TabIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tabIDKey).(string); ok {
		return v
	}
	return DefaultTabID
}

// WithSession returns a copy of ctx carrying session and tabID.
func WithSession(ctx context.Context, session *domain.Session, tabID string) context.Context {
	ctx = context.WithValue(ctx, sessionKey, session)
	return context.WithValue(ctx, tabIDKey, sanitizeTabID(tabID))
}

func sanitizeTabID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !tabIDPattern.MatchString(id) {
		return DefaultTabID
	}
	return id
}

func tabIDFromRequest(r *http.Request) string {
	tab := r.Header.Get(TabHeaderName)
	if tab == "" {
		tab = r.URL.Query().Get("tab_id")
	}
	return sanitizeTabID(tab)
}

func sessionIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func clearSessionCookie(w http.ResponseWriter, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware loads the device session, if any, and the tab id into the
// request context. It never creates a session.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), tabIDKey, tabIDFromRequest(r))

			if id := sessionIDFromRequest(r); id != "" {
				session, err := repo.GetSession(ctx, id)
				if err != nil {
					slog.Error("Failed to load session", "error", err)
					writeError(w, http.StatusInternalServerError, "failed to load session")
					return
				}
				if session != nil {
					touch(ctx, repo, session)
					ctx = context.WithValue(ctx, sessionKey, session)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func touch(ctx context.Context, repo store.Repository, session *domain.Session) {
	now := time.Now()
	if now.Sub(session.LastSeenAt) < lastSeenResolution {
		return
	}
	if err := repo.UpdateLastSeen(ctx, session.SessionID, now); err != nil {
		slog.Warn("Failed to update session activity", "error", err, "user_id", session.Identity.UserID)
		return
	}
	session.LastSeenAt = now
}

// RequireSession rejects requests from devices that are not signed in.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Establish stores identity and token for the requesting device, reusing its
// session id when it has one, and sets the session cookie.
func Establish(w http.ResponseWriter, r *http.Request, repo store.Repository, id domain.Identity, token string, isDev bool) (*domain.Session, error) {
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now()
	session := &domain.Session{
		SessionID:  sessionID,
		Identity:   id,
		Token:      token,
		LastSeenAt: now,
		CreatedAt:  now,
	}
	if err := repo.UpsertSession(r.Context(), session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	setSessionCookie(w, sessionID, isDev)
	return session, nil
}

// Clear forgets the requesting device's session and expires its cookie. It
// returns the cleared session id, or "" if there was none.
func Clear(w http.ResponseWriter, r *http.Request, repo store.Repository, isDev bool) (string, error) {
	sessionID := sessionIDFromRequest(r)
	clearSessionCookie(w, isDev)
	if sessionID == "" {
		return "", nil
	}
	if err := repo.DeleteSession(r.Context(), sessionID); err != nil {
		return "", fmt.Errorf("delete session: %w", err)
	}
	return sessionID, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
