package handlers

import (
	"encoding/json"
	"net/http"

	"solbot-backend/internal/models"
	"solbot-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// UserDataHandlers handles HTTP requests for opaque user-data storage.
type UserDataHandlers struct {
	userDataService *services.UserDataService
}

// NewUserDataHandlers creates a new UserDataHandlers instance.
func NewUserDataHandlers(userDataService *services.UserDataService) *UserDataHandlers {
	return &UserDataHandlers{
		userDataService: userDataService,
	}
}

// HandleSaveUserData stores one typed key/value row for a user.
func (h *UserDataHandlers) HandleSaveUserData(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		RespondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	var req models.SaveUserDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.userDataService.SaveUserData(r.Context(), userID, req)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to save user data: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusCreated, item)
}

// HandleGetUserData returns a user's stored rows, optionally filtered by the
// data_type query parameter.
func (h *UserDataHandlers) HandleGetUserData(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		RespondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	items, err := h.userDataService.GetUserData(r.Context(), userID, r.URL.Query().Get("data_type"))
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to fetch user data: "+err.Error())
		return
	}
	if items == nil {
		items = []models.UserDataItem{}
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"items":   items,
	})
}
