package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hearthside/companion/internal/api/middleware"
	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/service"
)

const defaultTranscriptLimit = 50

type ConversationHandler struct {
	companion *service.CompanionService
	convStore domain.ConversationStore
}

func NewConversationHandler(companion *service.CompanionService, convStore domain.ConversationStore) *ConversationHandler {
	return &ConversationHandler{companion: companion, convStore: convStore}
}

type turnRequest struct {
	Text string `json:"text"`
}

// PostTurn runs one conversational turn.
func (h *ConversationHandler) PostTurn(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.companion.HandleTurn(r.Context(), user, req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process turn")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type transcriptResponse struct {
	Turns []domain.ConversationTurn `json:"turns"`
}

// GetTranscript returns the most recent turns, oldest first.
func (h *ConversationHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := defaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	turns, err := h.convStore.Recent(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}

	writeJSON(w, http.StatusOK, transcriptResponse{Turns: turns})
}

// ClearTranscript deletes the user's conversation history.
func (h *ConversationHandler) ClearTranscript(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.convStore.Clear(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear transcript")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
