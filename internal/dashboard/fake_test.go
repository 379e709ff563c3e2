package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"sync"
)

type fakeBackend struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	queries   map[string][]url.Values
	getHook   func(path string, query url.Values)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: make(map[string]string),
		failures:  make(map[string]error),
		queries:   make(map[string][]url.Values),
	}
}

func (f *fakeBackend) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[path] = body
	delete(f.failures, path)
}

func (f *fakeBackend) fail(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = err
}

func (f *fakeBackend) lastQuery(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.queries[path]
	if len(q) == 0 {
		return nil
	}
	return q[len(q)-1]
}

// Get serves path+"?"+query when such a response is set, else path.
func (f *fakeBackend) Get(_ context.Context, path string, query url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	hook := f.getHook
	f.mu.Unlock()
	if hook != nil {
		hook(path, query)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[path] = append(f.queries[path], query)
	if err := f.failures[path]; err != nil {
		return nil, err
	}
	if len(query) > 0 {
		if body, ok := f.responses[path+"?"+query.Encode()]; ok {
			return json.RawMessage(body), nil
		}
	}
	body, ok := f.responses[path]
	if !ok {
		return json.RawMessage(`[]`), nil
	}
	return json.RawMessage(body), nil
}

func (f *fakeBackend) Directory(ctx context.Context) (json.RawMessage, error) {
	return f.Get(ctx, "/messages/users", nil)
}

func (f *fakeBackend) ConversationSummaries(ctx context.Context) (json.RawMessage, error) {
	return f.Get(ctx, "/messages/conversations", nil)
}

func (f *fakeBackend) Conversation(ctx context.Context, userID string) (json.RawMessage, error) {
	return f.Get(ctx, "/messages/conversation/"+userID, nil)
}

func (f *fakeBackend) SendMessage(context.Context, string, string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (f *fakeBackend) MarkRead(context.Context, string) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
