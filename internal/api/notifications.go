package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/propdesk/internal/notify"
)

const wsWriteTimeout = 5 * time.Second

// ListNotifications returns the caller's active notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]any{"notifications": v.Notifications().Active()})
}

// DismissNotification removes a notification before it expires.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	if !v.Notifications().Dismiss(chi.URLParam(r, "id")) {
		Error(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type snapshotMessage struct {
	Type          string                `json:"type"`
	Notifications []notify.Notification `json:"notifications"`
}

// StreamNotifications upgrades to a websocket that first sends the active
// notifications, then every shown, expired and dismissed event of the view.
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	userID := v.Identity().UserID

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	center := v.Notifications()
	events, unsubscribe := center.Subscribe()
	defer unsubscribe()

	// The client never sends; CloseRead handles control frames and cancels
	// ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	if err := writeJSON(ctx, ws, snapshotMessage{Type: "snapshot", Notifications: center.Active()}); err != nil {
		slog.Debug("Failed to send notification snapshot", "error", err, "user_id", userID)
		return
	}

	slog.Info("Notification stream opened", "user_id", userID)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = ws.Close(websocket.StatusGoingAway, "view closed")
				return
			}
			if err := writeJSON(ctx, ws, ev); err != nil {
				slog.Debug("Notification stream write failed", "error", err, "user_id", userID)
				return
			}
		case <-ctx.Done():
			slog.Info("Notification stream closed", "user_id", userID)
			return
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}
