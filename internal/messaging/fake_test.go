package messaging

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ashureev/propdesk/internal/backend"
	"github.com/ashureev/propdesk/internal/domain"
)

// fakeBackend serves canned feeds and stores sent messages in memory.
type fakeBackend struct {
	mu          sync.Mutex
	self        string
	directory   string
	dirErr      error
	summaries   string
	sumErr      error
	history     map[string][]map[string]any
	convErr     error
	convHook    func(userID string)
	sendErr     error
	sendResp    string
	sendHook    func()
	markReadErr error

	directoryCalls int
	sends          []backend.SendMessageRequest
	markReads      []string
	nextID         int
}

func newFakeBackend(self string) *fakeBackend {
	return &fakeBackend{
		self:      self,
		directory: `[]`,
		summaries: `[]`,
		history:   make(map[string][]map[string]any),
		nextID:    1000,
	}
}

func (f *fakeBackend) Directory(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directoryCalls++
	if f.dirErr != nil {
		return nil, f.dirErr
	}
	return json.RawMessage(f.directory), nil
}

func (f *fakeBackend) ConversationSummaries(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sumErr != nil {
		return nil, f.sumErr
	}
	return json.RawMessage(f.summaries), nil
}

func (f *fakeBackend) Conversation(_ context.Context, userID string) (json.RawMessage, error) {
	f.mu.Lock()
	hook := f.convHook
	f.mu.Unlock()
	if hook != nil {
		hook(userID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.convErr != nil {
		return nil, f.convErr
	}
	msgs := f.history[userID]
	if msgs == nil {
		msgs = []map[string]any{}
	}
	return json.Marshal(msgs)
}

func (f *fakeBackend) SendMessage(_ context.Context, toUserID, content string) (json.RawMessage, error) {
	f.mu.Lock()
	hook := f.sendHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, backend.SendMessageRequest{ToUserID: toUserID, Content: content})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	msg := map[string]any{
		"id":         f.nextID,
		"fromUserId": f.self,
		"toUserId":   toUserID,
		"content":    content,
	}
	f.history[toUserID] = append(f.history[toUserID], msg)
	if f.sendResp != "" {
		return json.RawMessage(f.sendResp), nil
	}
	return json.Marshal(map[string]any{"message": msg})
}

func (f *fakeBackend) MarkRead(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, userID)
	return f.markReadErr
}

func (f *fakeBackend) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *fakeNotifier) Info(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, message)
}

func (n *fakeNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func newTestInbox(t *testing.T, self string, be *fakeBackend) (*Inbox, *fakeNotifier) {
	t.Helper()
	n := &fakeNotifier{}
	in := NewInbox(domain.Identity{UserID: self, Role: domain.RoleTenant}, be, n, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(in.Close)
	return in, n
}
