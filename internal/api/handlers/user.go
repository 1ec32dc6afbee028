package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hearthside/companion/internal/api/middleware"
	"github.com/hearthside/companion/internal/domain"
	"github.com/hearthside/companion/internal/store"
)

type UserHandler struct {
	userStore domain.UserStore
	medStore  domain.MedicationStore
}

func NewUserHandler(userStore domain.UserStore, medStore domain.MedicationStore) *UserHandler {
	return &UserHandler{userStore: userStore, medStore: medStore}
}

type createMedicationRequest struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage,omitempty"`
	WithFood bool   `json:"with_food,omitempty"`
}

type createUserRequest struct {
	Name              string                    `json:"name"`
	PreferredLanguage string                    `json:"preferred_language,omitempty"`
	Timezone          string                    `json:"timezone,omitempty"`
	City              string                    `json:"city,omitempty"`
	Medications       []createMedicationRequest `json:"medications,omitempty"`
}

type createUserResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

// Create is the unauthenticated bootstrap endpoint. The plaintext API key is
// returned exactly once; only its hash is stored.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			writeError(w, http.StatusBadRequest, "invalid timezone")
			return
		}
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	user := &domain.User{
		Name:              req.Name,
		APIKeyHash:        middleware.HashAPIKey(apiKey),
		PreferredLanguage: req.PreferredLanguage,
		Timezone:          req.Timezone,
		City:              req.City,
	}

	if err := h.userStore.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	for _, m := range req.Medications {
		if m.Name == "" {
			continue
		}
		med := &domain.Medication{
			UserID:   user.ID,
			Name:     m.Name,
			Dosage:   m.Dosage,
			WithFood: m.WithFood,
		}
		if err := h.medStore.Create(r.Context(), med); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create medication")
			return
		}
	}

	writeJSON(w, http.StatusCreated, createUserResponse{
		ID:     user.ID.String(),
		Name:   user.Name,
		APIKey: apiKey,
	})
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "hc_" + hex.EncodeToString(b), nil
}
