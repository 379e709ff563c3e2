// Package notify keeps short-lived user-facing notifications and streams
// their lifecycle to subscribers.
package notify

import (
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/propdesk/internal/metrics"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// EventType is the lifecycle transition carried by an Event.
type EventType string

const (
	EventShown     EventType = "shown"
	EventExpired   EventType = "expired"
	EventDismissed EventType = "dismissed"
)

// subscriberBuffer is the per-subscriber event backlog before events are dropped.
const subscriberBuffer = 32

// Notification is one visible message.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Event reports a notification lifecycle change.
type Event struct {
	Type         EventType    `json:"type"`
	Notification Notification `json:"notification"`
}

// Config sets the display duration per level. Success uses InfoTTL.
type Config struct {
	InfoTTL  time.Duration
	ErrorTTL time.Duration
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Center holds active notifications. Each one expires on its own timer
// unless dismissed first.
type Center struct {
	cfg Config

	mu      sync.Mutex
	seq     int64
	active  map[string]*entry
	order   []string
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// NewCenter creates an empty notification center.
func NewCenter(cfg Config) *Center {
	if cfg.InfoTTL <= 0 {
		cfg.InfoTTL = 3 * time.Second
	}
	if cfg.ErrorTTL <= 0 {
		cfg.ErrorTTL = 5 * time.Second
	}
	return &Center{
		cfg:    cfg,
		active: make(map[string]*entry),
		subs:   make(map[int]chan Event),
	}
}

func (c *Center) ttl(level Level) time.Duration {
	if level == LevelError {
		return c.cfg.ErrorTTL
	}
	return c.cfg.InfoTTL
}

// Push shows a notification and schedules its expiry.
func (c *Center) Push(level Level, message string) Notification {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	n := Notification{
		ID:        strconv.FormatInt(c.seq, 10),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl(level)),
	}
	metrics.Notifications.WithLabelValues(string(level)).Inc()
	if c.closed {
		return n
	}

	id := n.ID
	c.active[id] = &entry{
		n:     n,
		timer: time.AfterFunc(c.ttl(level), func() { c.remove(id, EventExpired) }),
	}
	c.order = append(c.order, id)
	c.publishLocked(Event{Type: EventShown, Notification: n})
	return n
}

// Info pushes an informational notification.
func (c *Center) Info(message string) { c.Push(LevelInfo, message) }

// Success pushes a success notification.
func (c *Center) Success(message string) { c.Push(LevelSuccess, message) }

// Error pushes an error notification.
func (c *Center) Error(message string) { c.Push(LevelError, message) }

// Dismiss removes a notification before it expires. It reports whether the
// notification was still active.
func (c *Center) Dismiss(id string) bool {
	return c.remove(id, EventDismissed)
}

func (c *Center) remove(id string, why EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.active[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(c.active, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.publishLocked(Event{Type: why, Notification: e.n})
	return true
}

// Active returns unexpired notifications in push order.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.active[id].n)
	}
	return out
}

// Subscribe returns a channel of lifecycle events and a function that
// unsubscribes. Slow subscribers miss events instead of blocking Push.
func (c *Center) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

func (c *Center) publishLocked(ev Event) {
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close cancels every pending expiry and closes all subscriptions.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, e := range c.active {
		e.timer.Stop()
		delete(c.active, id)
	}
	c.order = nil
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
