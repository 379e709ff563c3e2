package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/propdesk/internal/messaging"
)

type selectRequest struct {
	UserID any `json:"userId" validate:"required"`
}

type contentRequest struct {
	Content string `json:"content" validate:"max=4000"`
}

type contactsResponse struct {
	Contacts       []messaging.Contact `json:"contacts"`
	SelectedUserID string              `json:"selectedUserId"`
}

type sendResponse struct {
	Message      *messaging.Message          `json:"message"`
	Conversation messaging.ConversationState `json:"conversation"`
}

// RefreshContacts reconciles the directory with conversation summaries.
func (h *Handler) RefreshContacts(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	inbox := v.Inbox()

	contacts, err := inbox.RefreshContacts(r.Context())
	switch {
	case errors.Is(err, messaging.ErrReconcileInFlight):
		Error(w, http.StatusConflict, "contact refresh already in progress")
		return
	case errors.Is(err, messaging.ErrDirectoryUnavailable):
		Error(w, http.StatusBadGateway, "user directory unavailable")
		return
	case err != nil:
		slog.Error("Failed to refresh contacts", "error", err, "user_id", v.Identity().UserID)
		Error(w, http.StatusInternalServerError, "failed to refresh contacts")
		return
	}

	JSON(w, http.StatusOK, contactsResponse{Contacts: contacts, SelectedUserID: inbox.Selected()})
}

// GetContacts returns the last reconciled contact list.
func (h *Handler) GetContacts(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	inbox := v.Inbox()
	JSON(w, http.StatusOK, contactsResponse{Contacts: inbox.Contacts(), SelectedUserID: inbox.Selected()})
}

// SelectContact opens the conversation with a contact. A failed history
// load still switches the selection; the failure reaches the user as a
// notification.
func (h *Handler) SelectContact(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	inbox := v.Inbox()
	if err := inbox.Select(r.Context(), messaging.CanonicalID(req.UserID)); err != nil {
		if errors.Is(err, messaging.ErrValidation) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Warn("Conversation load failed", "error", err, "user_id", v.Identity().UserID)
	}
	JSON(w, http.StatusOK, inbox.State())
}

// GetConversation returns the active conversation.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, v.Inbox().State())
}

// PutDraft stores the composer input.
func (h *Handler) PutDraft(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	v.Inbox().SetDraft(req.Content)
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage sends to the selected contact. On failure the text is back in
// the draft and the conversation is as it was before the call.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	inbox := v.Inbox()
	sent, err := inbox.Send(r.Context(), req.Content)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, messaging.ErrValidation) {
			status = http.StatusBadRequest
		}
		JSON(w, status, map[string]any{
			"error":        err.Error(),
			"conversation": inbox.State(),
		})
		return
	}

	resp := sendResponse{Conversation: inbox.State()}
	if sent.ID != "" {
		resp.Message = &sent
	}
	JSON(w, http.StatusCreated, resp)
}
