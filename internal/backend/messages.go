package backend

import (
	"context"
	"encoding/json"
	"net/url"
)

// SendMessageRequest is the body of the message send endpoint.
type SendMessageRequest struct {
	ToUserID string `json:"toUserId"`
	Content  string `json:"content"`
}

// Directory returns the raw user directory feed.
func (c *Client) Directory(ctx context.Context) (json.RawMessage, error) {
	return c.Get(ctx, "/messages/users", nil)
}

// ConversationSummaries returns the raw per-counterpart summary feed.
func (c *Client) ConversationSummaries(ctx context.Context) (json.RawMessage, error) {
	return c.Get(ctx, "/messages/conversations", nil)
}

// Conversation returns the raw message history with userID.
func (c *Client) Conversation(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.Get(ctx, "/messages/conversation/"+url.PathEscape(userID), nil)
}

// SendMessage persists a message and returns the stored record.
func (c *Client) SendMessage(ctx context.Context, toUserID, content string) (json.RawMessage, error) {
	return c.Post(ctx, "/messages/send", SendMessageRequest{ToUserID: toUserID, Content: content})
}

// MarkRead marks every message from userID as read. The body is ignored.
func (c *Client) MarkRead(ctx context.Context, userID string) error {
	_, err := c.Post(ctx, "/messages/read/"+url.PathEscape(userID), nil)
	return err
}
