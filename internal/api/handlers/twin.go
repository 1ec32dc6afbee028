package handlers

import (
	"net/http"

	"github.com/hearthside/companion/internal/api/middleware"
	"github.com/hearthside/companion/internal/service"
)

type TwinHandler struct {
	twin      *service.TwinService
	baselines *service.BaselineService
}

func NewTwinHandler(twin *service.TwinService, baselines *service.BaselineService) *TwinHandler {
	return &TwinHandler{twin: twin, baselines: baselines}
}

// GetState evaluates and returns the current twin state. Always computed
// fresh; there is no cached state to go stale.
func (h *TwinHandler) GetState(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	state, err := h.twin.Evaluate(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to evaluate twin state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// RebuildBaseline forces an immediate baseline rebuild for the user, outside
// the nightly schedule.
func (h *TwinHandler) RebuildBaseline(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.baselines.Rebuild(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to rebuild baseline")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}
