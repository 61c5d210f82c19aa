package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"solbot-backend/internal/models"
	"solbot-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ChatHandlers handles HTTP requests for the tutoring chat endpoints.
type ChatHandlers struct {
	chatService *services.ChatService
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatService,
	}
}

// HandleChat processes one tutoring turn. The response is always HTTP 200
// with an envelope; logical failures ride inside it with status "error".
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithJSON(w, http.StatusOK, models.ChatEnvelope{
			Error:  "Invalid request body",
			Status: "error",
		})
		return
	}

	envelope := h.chatService.ProcessChat(r.Context(), req)
	RespondWithJSON(w, http.StatusOK, envelope)
}

// HandleSubmit processes a formal submission for scored evaluation.
func (h *ChatHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithJSON(w, http.StatusOK, models.ChatEnvelope{
			Error:  "Invalid request body",
			Status: "error",
		})
		return
	}

	envelope := h.chatService.ProcessSubmission(r.Context(), req)
	RespondWithJSON(w, http.StatusOK, envelope)
}

// HandleGetHistory returns a user's stored messages. Accepts optional
// conversation_id and limit query parameters.
func (h *ChatHandlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		RespondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	conversationID := r.URL.Query().Get("conversation_id")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	messages, err := h.chatService.GetChatHistory(r.Context(), userID, conversationID, limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to fetch chat history: "+err.Error())
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"messages": messages,
	})
}

// HandleHealth reports chat subsystem liveness.
func (h *ChatHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "chat",
	})
}
