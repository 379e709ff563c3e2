package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/propdesk/internal/dashboard"
	"github.com/ashureev/propdesk/internal/domain"
	"github.com/ashureev/propdesk/internal/identity"
	"github.com/ashureev/propdesk/internal/messaging"
)

// createSessionRequest is the identity handed over by the auth collaborator
// after sign-in. UserID may arrive as a number or a string.
type createSessionRequest struct {
	UserID any    `json:"userId" validate:"required"`
	Name   string `json:"name" validate:"max=256"`
	Role   string `json:"role" validate:"required,oneof=admin tenant sales owner"`
	Token  string `json:"token" validate:"required"`
}

type meResponse struct {
	domain.Identity
	Resources []string `json:"resources"`
}

func newMeResponse(id domain.Identity) meResponse {
	resources := []string{}
	for _, r := range dashboard.Catalogue(id.Role) {
		resources = append(resources, r.Key)
	}
	return meResponse{Identity: id, Resources: resources}
}

// CreateSession binds the requesting device to a signed-in identity.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	id := domain.Identity{
		UserID: messaging.CanonicalID(req.UserID),
		Name:   req.Name,
		Role:   domain.Role(req.Role),
	}
	if !id.Resolved() {
		Error(w, http.StatusBadRequest, "invalid fields: userid (required)")
		return
	}

	session, err := identity.Establish(w, r, h.repo, id, req.Token, h.opts.IsDev)
	if err != nil {
		slog.Error("Failed to establish session", "error", err, "user_id", id.UserID)
		Error(w, http.StatusInternalServerError, "failed to store session")
		return
	}
	// Views opened under the previous sign-in hold its token.
	h.views.CloseSession(session.SessionID)

	slog.Info("Session established", "user_id", id.UserID, "role", id.Role)
	JSON(w, http.StatusCreated, newMeResponse(id))
}

// DeleteSession signs the requesting device out.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := identity.Clear(w, r, h.repo, h.opts.IsDev)
	if err != nil {
		slog.Error("Failed to clear session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	if sessionID != "" {
		closed := h.views.CloseSession(sessionID)
		slog.Info("Session cleared", "views_closed", closed)
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMe returns the signed-in identity and the resources on its dashboard.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := identity.SessionFromContext(r.Context())
	JSON(w, http.StatusOK, newMeResponse(session.Identity))
}
