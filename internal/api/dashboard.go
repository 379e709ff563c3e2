package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/propdesk/internal/dashboard"
)

type resourceResponse struct {
	Resource string `json:"resource"`
	Tab      string `json:"tab"`
	Records  any    `json:"records"`
	Degraded bool   `json:"degraded"`
}

// GetDashboard aggregates every resource of the caller's dashboard.
// Failed resources come back empty and are listed under "degraded".
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	snap, err := v.Load(r.Context())
	if err != nil {
		slog.Error("Failed to load dashboard", "error", err, "user_id", v.Identity().UserID)
		Error(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	JSON(w, http.StatusOK, snap)
}

// GetResource re-fetches one status-classified resource for the given tab.
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}

	resource := chi.URLParam(r, "resource")
	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = dashboard.TabAll
	}

	snap, err := v.SelectTab(r.Context(), resource, tab)
	switch {
	case errors.Is(err, dashboard.ErrUnknownResource):
		Error(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, dashboard.ErrInvalidTab):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("Failed to load resource", "error", err, "resource", resource, "user_id", v.Identity().UserID)
		Error(w, http.StatusInternalServerError, "failed to load resource")
		return
	}

	records, _ := snap.Get(resource)
	JSON(w, http.StatusOK, resourceResponse{
		Resource: resource,
		Tab:      tab,
		Records:  records,
		Degraded: snap.Err(resource) != nil,
	})
}
