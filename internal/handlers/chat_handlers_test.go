package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solbot-backend/internal/llm"
	"solbot-backend/internal/models"
	"solbot-backend/internal/scaffolding"
	"solbot-backend/internal/services"
	"solbot-backend/internal/store/memory"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	text string
}

func (g *stubGateway) CallModel(ctx context.Context, params llm.CallParams) (llm.CallResult, error) {
	return llm.CallResult{Text: g.text}, nil
}

func (g *stubGateway) ModelName() string { return "test-model" }

func newTestRouter(gw services.Gateway) *chi.Mux {
	s := memory.NewMemoryStore()
	chatService := services.NewChatService(s, gw, scaffolding.NewResolver(s), services.ChatServiceConfig{
		Temperature:      0.5,
		MaxTokens:        1000,
		ResponseCacheTTL: time.Minute,
	})
	userDataService := services.NewUserDataService(s)

	r := chi.NewRouter()
	chatHandler := NewChatHandlers(chatService)
	userDataHandler := NewUserDataHandlers(userDataService)
	r.Route("/api", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/", chatHandler.HandleChat)
			r.Post("/submit", chatHandler.HandleSubmit)
			r.Get("/history/{userID}", chatHandler.HandleGetHistory)
			r.Get("/health", chatHandler.HandleHealth)
		})
		r.Route("/user-data", func(r chi.Router) {
			r.Post("/{userID}", userDataHandler.HandleSaveUserData)
			r.Get("/{userID}", userDataHandler.HandleGetUserData)
		})
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleChatReturnsEnvelope(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "A helpful reply."})

	rec := postJSON(t, router, "/api/chat/", models.ChatRequest{
		UserID: "u1", Phase: "phase3", Message: "how do I plan my study space?",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope models.ChatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.Data)
	assert.Equal(t, "A helpful reply.", envelope.Data.Message)
	assert.NotEmpty(t, envelope.Data.ConversationID)
}

func TestHandleChatValidationErrorStillHTTP200(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "unused"})

	rec := postJSON(t, router, "/api/chat/", models.ChatRequest{UserID: "u1"})

	require.Equal(t, http.StatusOK, rec.Code, "logical failures keep the 200 contract")
	var envelope models.ChatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "error", envelope.Status)
	assert.Contains(t, envelope.Error, "Missing required fields")
}

func TestHandleChatMalformedBody(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "unused"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope models.ChatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Invalid request body", envelope.Error)
	assert.Equal(t, "error", envelope.Status)
}

func TestHandleSubmitTagsPayload(t *testing.T) {
	router := newTestRouter(&stubGateway{text: `Good work.

<!-- INSTRUCTOR_METADATA
Score: 2.2
Scaffolding: 3
-->`})

	rec := postJSON(t, router, "/api/chat/submit", models.SubmitRequest{
		UserID: "u1", Phase: "phase4", Content: "my goal", SubmissionType: "long_term_goals",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope models.ChatEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	assert.True(t, envelope.Data.IsSubmission)
	assert.Equal(t, "long_term_goals", envelope.Data.SubmissionType)
}

func TestHandleGetHistory(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "Reply one."})

	postJSON(t, router, "/api/chat/", models.ChatRequest{
		UserID: "u1", Phase: "phase3", Message: "first question", ConversationID: "c1",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history/u1?conversation_id=c1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		UserID   string           `json:"user_id"`
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.UserID)
	require.Len(t, body.Messages, 2, "the turn stored both roles")
	assert.Equal(t, "user", body.Messages[0].Role)
	assert.Equal(t, "assistant", body.Messages[1].Role)
}

func TestHandleGetHistoryEmpty(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "unused"})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history/nobody", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)
}

func TestHandleChatHealth(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "unused"})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestUserDataRoundTrip(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "unused"})

	rec := postJSON(t, router, "/api/user-data/u1", models.SaveUserDataRequest{
		DataType: "profile", Value: "statistics major",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/user-data/u1?data_type=profile", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, req)

	require.Equal(t, http.StatusOK, getRec.Code)
	var body struct {
		UserID string                `json:"user_id"`
		Items  []models.UserDataItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "statistics major", body.Items[0].Value)
}

func TestUserDataRejectsMissingType(t *testing.T) {
	router := newTestRouter(&stubGateway{text: "unused"})

	rec := postJSON(t, router, "/api/user-data/u1", models.SaveUserDataRequest{Value: "no type"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "data_type is required")
}
