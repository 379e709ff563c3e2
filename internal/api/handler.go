// Package api provides HTTP handlers for the propdesk dashboard API.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ashureev/propdesk/internal/dashboard"
	"github.com/ashureev/propdesk/internal/identity"
	"github.com/ashureev/propdesk/internal/store"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Options configures a Handler.
type Options struct {
	// IsDev relaxes cookie security for plain-HTTP local development.
	IsDev bool
	// OriginPatterns are the hosts allowed to open the notification websocket.
	OriginPatterns []string
}

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	views    *dashboard.Manager
	validate *validator.Validate
	opts     Options
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, views *dashboard.Manager, opts Options) *Handler {
	return &Handler{
		repo:     repo,
		views:    views,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
	}
}

// RegisterRoutes mounts the session, dashboard, messaging and notification routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.CreateSession)
		r.Delete("/session", h.DeleteSession)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireSession)

			r.Get("/me", h.GetMe)

			r.Get("/dashboard", h.GetDashboard)
			r.Get("/dashboard/{resource}", h.GetResource)

			r.Route("/messages", func(r chi.Router) {
				r.Post("/contacts/refresh", h.RefreshContacts)
				r.Get("/contacts", h.GetContacts)
				r.Post("/select", h.SelectContact)
				r.Get("/conversation", h.GetConversation)
				r.Put("/draft", h.PutDraft)
				r.Post("/send", h.SendMessage)
			})

			r.Get("/notifications", h.ListNotifications)
			r.Post("/notifications/{id}/dismiss", h.DismissNotification)
		})
	})

	r.With(identity.RequireSession).Get("/ws/notifications", h.StreamNotifications)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v and validates its struct tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// view returns the dashboard view of the requesting tab, creating it on first use.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) (*dashboard.View, bool) {
	session := identity.SessionFromContext(r.Context())
	if session == nil {
		Error(w, http.StatusUnauthorized, "not signed in")
		return nil, false
	}
	v, err := h.views.GetOrCreate(session, identity.TabIDFromContext(r.Context()))
	if err != nil {
		slog.Warn("Failed to open dashboard view", "error", err, "user_id", session.Identity.UserID)
		Error(w, http.StatusForbidden, "no dashboard for this role")
		return nil, false
	}
	return v, true
}
