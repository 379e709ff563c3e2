package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/propdesk/internal/backend"
	"github.com/ashureev/propdesk/internal/metrics"
)

// beginSelectLocked makes userID the active counterpart and drops the
// previous session. Callers must hold in.mu.
func (in *Inbox) beginSelectLocked(userID string) uint64 {
	in.epoch++
	in.selected = userID
	in.messages = []Message{}
	return in.epoch
}

// Select switches the active conversation to userID and loads its history.
// Any previous session is superseded immediately.
func (in *Inbox) Select(ctx context.Context, userID string) error {
	id := CanonicalID(userID)
	if id == "" {
		in.notifier.Error("Select a contact first")
		return fmt.Errorf("%w: contact id is empty", ErrValidation)
	}

	in.mu.Lock()
	epoch := in.beginSelectLocked(id)
	in.mu.Unlock()

	return in.load(ctx, id, epoch, false)
}

// Reload refreshes the active conversation from the server.
func (in *Inbox) Reload(ctx context.Context) error {
	in.mu.Lock()
	id, epoch := in.selected, in.epoch
	in.mu.Unlock()
	if id == "" {
		return nil
	}
	return in.load(ctx, id, epoch, false)
}

// load replaces the messages of selection epoch with the server history.
// The result is dropped if another contact was selected meanwhile. A failed
// fetch notifies and is returned for logging only; it empties the history
// unless keepOnError is set, in which case the current messages stay.
func (in *Inbox) load(ctx context.Context, userID string, epoch uint64, keepOnError bool) error {
	raw, err := in.backend.Conversation(ctx, userID)
	var history []Message
	if err == nil {
		history, err = DecodeMessages(raw)
	}
	if err != nil {
		in.logger.Warn("Failed to load conversation", "error", err, "user_id", in.self.UserID, "contact_id", userID)
		history = []Message{}
	}

	in.mu.Lock()
	if in.epoch != epoch || in.selected != userID {
		in.mu.Unlock()
		in.logger.Debug("Discarded stale conversation load", "contact_id", userID)
		return nil
	}
	if err != nil && keepOnError {
		in.mu.Unlock()
		in.notifier.Error("Could not load conversation")
		return fmt.Errorf("reload conversation %s: %w", userID, err)
	}
	// Optimistic entries of sends still in flight stay at the tail.
	for _, m := range in.messages {
		if m.Pending {
			history = append(history, m)
		}
	}
	in.messages = history
	in.mu.Unlock()

	if err != nil {
		in.notifier.Error("Could not load conversation")
		return fmt.Errorf("load conversation %s: %w", userID, err)
	}

	in.goBackground(func(ctx context.Context) {
		in.markRead(ctx, userID)
	})
	return nil
}

// markRead is best effort: failure never reverts displayed messages.
func (in *Inbox) markRead(ctx context.Context, userID string) {
	if err := in.backend.MarkRead(ctx, userID); err != nil {
		in.logger.Warn("Failed to mark conversation read", "error", err, "user_id", in.self.UserID, "contact_id", userID)
		if !errors.Is(err, context.Canceled) {
			in.notifier.Error("Could not mark messages as read")
		}
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.contacts {
		if in.contacts[i].UserID == userID {
			in.contacts[i].UnreadCount = 0
			break
		}
	}
}

// Send delivers text to the selected contact optimistically.
//
// A placeholder with a temporary id is appended and the draft cleared before
// the request is issued. On success the placeholder is swapped for the
// server's message and the conversation is reloaded. On failure the
// placeholder is removed and the trimmed text is restored to the draft.
func (in *Inbox) Send(ctx context.Context, text string) (Message, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return Message{}, in.reject("Type a message first", "message is empty")
	}
	if !in.self.Resolved() {
		return Message{}, in.reject("Your session has no user identity; sign in again", "sender identity unavailable")
	}

	in.mu.Lock()
	to, epoch := in.selected, in.epoch
	if to == "" {
		in.mu.Unlock()
		return Message{}, in.reject("Select a contact first", "no contact selected")
	}
	placeholder := Message{
		ID:         in.newTempID(),
		FromUserID: in.self.UserID,
		ToUserID:   to,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Pending:    true,
	}
	in.messages = append(in.messages, placeholder)
	in.draft = ""
	in.mu.Unlock()

	raw, err := in.backend.SendMessage(ctx, to, content)
	if err != nil {
		in.mu.Lock()
		in.removeLocked(placeholder.ID)
		in.draft = content
		in.mu.Unlock()

		metrics.MessageSends.WithLabelValues("rolled_back").Inc()
		in.logger.Warn("Message send failed, rolled back", "error", err, "user_id", in.self.UserID, "contact_id", to)
		in.notifier.Error("Message not sent: " + failureText(err))
		return Message{}, fmt.Errorf("send message: %w", err)
	}

	confirmed, ok := DecodeSentMessage(raw)
	in.mu.Lock()
	in.removeLocked(placeholder.ID)
	if ok && in.epoch == epoch && !in.containsLocked(confirmed.ID) {
		in.messages = append(in.messages, confirmed)
	}
	current := in.epoch == epoch
	in.mu.Unlock()

	metrics.MessageSends.WithLabelValues("confirmed").Inc()
	if !ok {
		in.logger.Warn("Send response carried no message, relying on reload", "contact_id", to)
	}

	if current {
		// Reload picks up anything the counterpart sent during the round trip.
		// A failed reload keeps the confirmed message on screen.
		_ = in.load(ctx, to, epoch, true)
	}
	return confirmed, nil
}

func (in *Inbox) reject(userText, reason string) error {
	metrics.MessageSends.WithLabelValues("rejected").Inc()
	in.notifier.Error(userText)
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

func (in *Inbox) removeLocked(id string) {
	for i, m := range in.messages {
		if m.ID == id {
			in.messages = append(in.messages[:i:i], in.messages[i+1:]...)
			return
		}
	}
}

func (in *Inbox) containsLocked(id string) bool {
	for _, m := range in.messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func failureText(err error) string {
	var be *backend.Error
	if errors.As(err, &be) {
		return be.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "the server took too long to respond"
	}
	return "network error"
}
