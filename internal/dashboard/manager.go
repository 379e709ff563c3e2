package dashboard

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/propdesk/internal/domain"
	"github.com/ashureev/propdesk/internal/metrics"
)

// BackendFactory builds an upstream client authenticated with token.
type BackendFactory func(token string) Backend

// Manager holds the live views of every signed-in browser tab.
type Manager struct {
	newBackend BackendFactory
	cfg        ViewConfig

	mu    sync.Mutex
	views map[Key]*View
}

// NewManager creates an empty view manager.
func NewManager(newBackend BackendFactory, cfg ViewConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		newBackend: newBackend,
		cfg:        cfg,
		views:      make(map[Key]*View),
	}
}

// GetOrCreate returns the view for the tab of session, creating it on first use.
// A view whose identity no longer matches the session is replaced.
func (m *Manager) GetOrCreate(session *domain.Session, tabID string) (*View, error) {
	key := Key{SessionID: session.SessionID, TabID: tabID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.views[key]; ok {
		if v.identity == session.Identity {
			v.Touch()
			return v, nil
		}
		delete(m.views, key)
		go v.Close()
	}

	v, err := NewView(key, session.Identity, m.newBackend(session.Token), m.cfg)
	if err != nil {
		return nil, err
	}
	m.views[key] = v
	metrics.ActiveViews.Set(float64(len(m.views)))
	m.cfg.Logger.Info("Dashboard view created", "user_id", session.Identity.UserID, "view", key.String(), "role", session.Identity.Role)
	return v, nil
}

// Get returns an existing view.
func (m *Manager) Get(key Key) (*View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[key]
	return v, ok
}

// CloseSession closes every view of a device session and returns how many
// were closed.
func (m *Manager) CloseSession(sessionID string) int {
	var closing []*View

	m.mu.Lock()
	for k, v := range m.views {
		if k.SessionID == sessionID {
			closing = append(closing, v)
			delete(m.views, k)
		}
	}
	metrics.ActiveViews.Set(float64(len(m.views)))
	m.mu.Unlock()

	for _, v := range closing {
		v.Close()
	}
	return len(closing)
}

// Sweep closes views idle for longer than idle and returns how many were closed.
func (m *Manager) Sweep(idle time.Duration, now time.Time) int {
	var closing []*View

	m.mu.Lock()
	for k, v := range m.views {
		if now.Sub(v.LastSeen()) > idle {
			closing = append(closing, v)
			delete(m.views, k)
		}
	}
	metrics.ActiveViews.Set(float64(len(m.views)))
	m.mu.Unlock()

	for _, v := range closing {
		v.Close()
	}
	return len(closing)
}

// Len returns the number of live views.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// CloseAll closes every view. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	views := m.views
	m.views = make(map[Key]*View)
	metrics.ActiveViews.Set(0)
	m.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}
