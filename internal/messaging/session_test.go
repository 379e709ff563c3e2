package messaging

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/ashureev/propdesk/internal/backend"
)

func TestSelectRejectsEmptyID(t *testing.T) {
	t.Parallel()

	in, n := newTestInbox(t, "1", newFakeBackend("1"))
	if err := in.Select(context.Background(), "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
	if n.errorCount() != 1 {
		t.Errorf("Expected 1 error notification, got %v", n.errors)
	}
}

func TestSelectLoadFailure(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.convErr = &backend.Error{StatusCode: 500, Message: "db down"}
	in, n := newTestInbox(t, "1", be)

	if err := in.Select(context.Background(), "5"); err == nil {
		t.Fatal("Expected load error")
	}
	in.Wait()

	if msgs := in.Messages(); len(msgs) != 0 {
		t.Errorf("Expected empty history, got %+v", msgs)
	}
	if n.errorCount() != 1 {
		t.Errorf("Expected 1 error notification, got %v", n.errors)
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	if len(be.markReads) != 0 {
		t.Errorf("Expected no mark-read after failed load, got %v", be.markReads)
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.history["2"] = []map[string]any{{"id": 20, "fromUserId": 2, "toUserId": 1, "content": "from two"}}
	be.history["3"] = []map[string]any{{"id": 30, "fromUserId": 3, "toUserId": 1, "content": "from three"}}

	started := make(chan struct{})
	release := make(chan struct{})
	be.convHook = func(userID string) {
		if userID == "2" {
			close(started)
			<-release
		}
	}
	in, _ := newTestInbox(t, "1", be)

	done := make(chan error, 1)
	go func() { done <- in.Select(context.Background(), "2") }()
	<-started

	if err := in.Select(context.Background(), "3"); err != nil {
		t.Fatalf("Select 3: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Select 2: %v", err)
	}
	in.Wait()

	if got := in.Selected(); got != "3" {
		t.Fatalf("Expected selection 3, got %q", got)
	}
	msgs := in.Messages()
	if len(msgs) != 1 || msgs[0].Content != "from three" {
		t.Errorf("Expected only contact 3 history, got %+v", msgs)
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	if slices.Contains(be.markReads, "2") {
		t.Errorf("Expected no mark-read for superseded session, got %v", be.markReads)
	}
}

func TestMarkReadFailureKeepsMessages(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.directory = `[{"id":5,"name":"Eve"}]`
	be.summaries = `[{"userId":5,"unreadCount":2}]`
	be.history["5"] = []map[string]any{
		{"id": 1, "fromUserId": 5, "toUserId": 1, "content": "a"},
		{"id": 2, "fromUserId": 5, "toUserId": 1, "content": "b"},
	}
	be.markReadErr = errors.New("read failed")
	in, n := newTestInbox(t, "1", be)

	if _, err := in.RefreshContacts(context.Background()); err != nil {
		t.Fatalf("RefreshContacts: %v", err)
	}
	in.Wait()

	if msgs := in.Messages(); len(msgs) != 2 {
		t.Errorf("Expected 2 messages, got %+v", msgs)
	}
	if n.errorCount() != 1 {
		t.Errorf("Expected 1 error notification, got %v", n.errors)
	}
	if c := in.Contacts(); len(c) != 1 || c[0].UnreadCount != 2 {
		t.Errorf("Expected unread count to stay 2, got %+v", c)
	}
}

func TestMarkReadClearsUnread(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.directory = `[{"id":5,"name":"Eve"}]`
	be.summaries = `[{"userId":5,"unreadCount":2}]`
	in, _ := newTestInbox(t, "1", be)

	if _, err := in.RefreshContacts(context.Background()); err != nil {
		t.Fatalf("RefreshContacts: %v", err)
	}
	in.Wait()

	if c := in.Contacts(); len(c) != 1 || c[0].UnreadCount != 0 {
		t.Errorf("Expected unread count cleared, got %+v", c)
	}
}

func TestSendConverges(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.history["5"] = []map[string]any{{"id": 7, "fromUserId": 5, "toUserId": 1, "content": "hey"}}
	in, _ := newTestInbox(t, "1", be)

	if err := in.Select(context.Background(), "5"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	in.SetDraft("  hello  ")

	var inFlight []Message
	var draftInFlight string
	be.sendHook = func() {
		// A reload racing the send must keep the placeholder.
		if err := in.Reload(context.Background()); err != nil {
			t.Errorf("Reload: %v", err)
		}
		inFlight = in.Messages()
		draftInFlight = in.Draft()
	}

	sent, err := in.Send(context.Background(), in.Draft())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	in.Wait()

	if len(inFlight) != 2 || !inFlight[1].Pending || !IsTemporaryID(inFlight[1].ID) {
		t.Errorf("Expected pending placeholder during send, got %+v", inFlight)
	}
	if draftInFlight != "" {
		t.Errorf("Expected draft cleared during send, got %q", draftInFlight)
	}

	if sent.ID == "" || sent.Content != "hello" {
		t.Errorf("Unexpected confirmed message: %+v", sent)
	}
	msgs := in.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %+v", msgs)
	}
	for _, m := range msgs {
		if IsTemporaryID(m.ID) || m.Pending {
			t.Errorf("Expected no temporary messages after send, got %+v", m)
		}
	}
	if msgs[1].ID != sent.ID {
		t.Errorf("Expected confirmed message last, got %+v", msgs)
	}
	if be.sends[0].Content != "hello" || be.sends[0].ToUserID != "5" {
		t.Errorf("Unexpected send request: %+v", be.sends[0])
	}
}

func TestSendWithoutMessageInResponse(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.sendResp = `{"ok":true}`
	in, _ := newTestInbox(t, "1", be)

	if err := in.Select(context.Background(), "5"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	sent, err := in.Send(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	in.Wait()

	if sent.ID != "" {
		t.Errorf("Expected zero message, got %+v", sent)
	}
	msgs := in.Messages()
	if len(msgs) != 1 || msgs[0].Content != "ping" || IsTemporaryID(msgs[0].ID) {
		t.Errorf("Expected reload to deliver stored message, got %+v", msgs)
	}
}

func TestSendKeepsConfirmedMessageWhenReloadFails(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.history["5"] = []map[string]any{{"id": 40, "fromUserId": 5, "toUserId": 1, "content": "earlier"}}
	in, n := newTestInbox(t, "1", be)

	if err := in.Select(context.Background(), "5"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	in.Wait()

	be.mu.Lock()
	be.convErr = &backend.Error{StatusCode: 503, Message: "unavailable"}
	be.mu.Unlock()

	sent, err := in.Send(context.Background(), "Hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	in.Wait()

	ids := make([]string, 0, 2)
	for _, m := range in.Messages() {
		ids = append(ids, m.ID)
	}
	if !slices.Equal(ids, []string{"40", sent.ID}) {
		t.Errorf("Expected history plus confirmed message %q, got %v", sent.ID, ids)
	}
	if n.errorCount() != 1 {
		t.Errorf("Expected 1 error notification, got %v", n.errors)
	}
}

func TestSendFailureRollsBack(t *testing.T) {
	t.Parallel()

	be := newFakeBackend("1")
	be.sendErr = errors.New("connection refused")
	in, n := newTestInbox(t, "1", be)

	if err := in.Select(context.Background(), "5"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	in.Wait()
	before := in.Messages()

	in.SetDraft("Hi")
	if _, err := in.Send(context.Background(), in.Draft()); err == nil {
		t.Fatal("Expected send error")
	}

	if got := in.Draft(); got != "Hi" {
		t.Errorf("Expected draft restored to %q, got %q", "Hi", got)
	}
	if got := in.Messages(); !slices.Equal(got, before) {
		t.Errorf("Expected messages unchanged, got %+v", got)
	}
	if n.errorCount() != 1 {
		t.Errorf("Expected 1 error notification, got %v", n.errors)
	}
}

func TestSendValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		self     string
		selected string
		text     string
	}{
		{name: "blank text", self: "1", selected: "5", text: "   "},
		{name: "no contact selected", self: "1", text: "hello"},
		{name: "unresolved sender", self: "", selected: "5", text: "hello"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			be := newFakeBackend(tt.self)
			in, n := newTestInbox(t, tt.self, be)
			if tt.selected != "" {
				if err := in.Select(context.Background(), tt.selected); err != nil {
					t.Fatalf("Select: %v", err)
				}
				in.Wait()
			}
			errsBefore := n.errorCount()

			_, err := in.Send(context.Background(), tt.text)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Expected ErrValidation, got %v", err)
			}
			if be.sendCount() != 0 {
				t.Errorf("Expected no network call, got %d", be.sendCount())
			}
			if n.errorCount() != errsBefore+1 {
				t.Errorf("Expected one new error notification, got %v", n.errors)
			}
			if len(in.Messages()) != 0 {
				t.Errorf("Expected no optimistic message, got %+v", in.Messages())
			}
		})
	}
}
