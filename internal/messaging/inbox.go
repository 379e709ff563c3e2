package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/propdesk/internal/domain"
)

// Backend is the subset of the API client the inbox talks to.
type Backend interface {
	Directory(ctx context.Context) (json.RawMessage, error)
	ConversationSummaries(ctx context.Context) (json.RawMessage, error)
	Conversation(ctx context.Context, userID string) (json.RawMessage, error)
	SendMessage(ctx context.Context, toUserID, content string) (json.RawMessage, error)
	MarkRead(ctx context.Context, userID string) error
}

// Notifier surfaces short-lived messages to the user.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// Options tunes an Inbox.
type Options struct {
	// BackgroundTimeout bounds auto-select loads and mark-read calls.
	BackgroundTimeout time.Duration
	Logger            *slog.Logger
	// NewTempID overrides optimistic message id generation.
	NewTempID func() string
}

// Inbox owns one dashboard view's contact list and its single active
// conversation session.
type Inbox struct {
	self      domain.Identity
	backend   Backend
	notifier  Notifier
	logger    *slog.Logger
	bgTimeout time.Duration
	newTempID func() string

	// reconciling is held for the duration of a contact refresh.
	reconciling sync.Mutex

	mu       sync.Mutex
	contacts []Contact
	selected string
	epoch    uint64 // bumped on every selection; stale loads compare against it
	messages []Message
	draft    string
	closed   bool

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// NewInbox creates an inbox acting as self. The identity is fixed for the
// inbox lifetime.
func NewInbox(self domain.Identity, backend Backend, notifier Notifier, opts Options) *Inbox {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BackgroundTimeout <= 0 {
		opts.BackgroundTimeout = 10 * time.Second
	}
	if opts.NewTempID == nil {
		opts.NewTempID = func() string { return tempIDPrefix + uuid.NewString() }
	}
	self.UserID = CanonicalID(self.UserID)

	ctx, cancel := context.WithCancel(context.Background())
	return &Inbox{
		self:      self,
		backend:   backend,
		notifier:  notifier,
		logger:    opts.Logger,
		bgTimeout: opts.BackgroundTimeout,
		newTempID: opts.NewTempID,
		contacts:  []Contact{},
		messages:  []Message{},
		bgCtx:     ctx,
		bgCancel:  cancel,
	}
}

// ConversationState is a copy of the active session.
type ConversationState struct {
	SelectedUserID string    `json:"selectedUserId"`
	Messages       []Message `json:"messages"`
	Draft          string    `json:"draft"`
}

// Contacts returns the last published contact list.
func (in *Inbox) Contacts() []Contact {
	in.mu.Lock()
	defer in.mu.Unlock()
	return slices.Clone(in.contacts)
}

// Messages returns the active session's messages in insertion order.
func (in *Inbox) Messages() []Message {
	in.mu.Lock()
	defer in.mu.Unlock()
	return slices.Clone(in.messages)
}

// Selected returns the selected counterpart id, or "" if none.
func (in *Inbox) Selected() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.selected
}

// Draft returns the composer input.
func (in *Inbox) Draft() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.draft
}

// SetDraft replaces the composer input.
func (in *Inbox) SetDraft(text string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.draft = text
}

// State returns a consistent copy of the active session.
func (in *Inbox) State() ConversationState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return ConversationState{
		SelectedUserID: in.selected,
		Messages:       slices.Clone(in.messages),
		Draft:          in.draft,
	}
}

// Wait blocks until background loads and mark-read calls have finished.
func (in *Inbox) Wait() {
	in.wg.Wait()
}

// Close cancels background work and waits for it to return.
func (in *Inbox) Close() {
	in.mu.Lock()
	in.closed = true
	in.mu.Unlock()
	in.bgCancel()
	in.wg.Wait()
}

func (in *Inbox) goBackground(fn func(ctx context.Context)) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.wg.Add(1)
	in.mu.Unlock()

	go func() {
		defer in.wg.Done()
		ctx, cancel := context.WithTimeout(in.bgCtx, in.bgTimeout)
		defer cancel()
		fn(ctx)
	}()
}
