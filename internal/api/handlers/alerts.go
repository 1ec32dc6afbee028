package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hearthside/companion/internal/api/middleware"
	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/store"
)

type AlertHandler struct {
	alertStore domain.AlertStore
}

func NewAlertHandler(alertStore domain.AlertStore) *AlertHandler {
	return &AlertHandler{alertStore: alertStore}
}

type listAlertsResponse struct {
	Alerts []domain.RiskAlert `json:"alerts"`
}

// List returns the user's undismissed alerts, newest first.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alerts, err := h.alertStore.ListActive(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.RiskAlert{}
	}

	writeJSON(w, http.StatusOK, listAlertsResponse{Alerts: alerts})
}

// Dismiss marks one alert as handled.
func (h *AlertHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	if err := h.alertStore.Dismiss(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to dismiss alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}
