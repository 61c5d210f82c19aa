package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"solbot-backend/internal/cache"
	"solbot-backend/internal/extraction"
	"solbot-backend/internal/llm"
	"solbot-backend/internal/models"
	"solbot-backend/internal/prompts"
	"solbot-backend/internal/scaffolding"
	"solbot-backend/internal/store"

	"github.com/google/uuid"
)

// Gateway is the model-call surface the chat pipeline depends on. Defined
// here so tests can substitute a mock for the real client.
type Gateway interface {
	CallModel(ctx context.Context, params llm.CallParams) (llm.CallResult, error)
	ModelName() string
}

// Canned replies for the two phases that never reach the model.
const (
	introMessage = "Welcome to SoLBot! 🎓 I'm here to help you build strong self-regulated learning skills. Together we'll analyze your learning tasks, set meaningful goals, and develop strategies to monitor your own progress. Click the Continue button below when you're ready to begin!"

	summaryMessage = "Congratulations on completing your learning journey! 🎉 You've analyzed your tasks and resources, set long-term and short-term goals, planned for obstacles, and built a system to monitor your own progress. These self-regulated learning skills will serve you in every course you take. Well done!"
)

// responseCacheMessagePrefix caps how much of the student's message feeds the
// response-cache key.
const responseCacheMessagePrefix = 100

// ChatService orchestrates a tutoring turn: prompt assembly, history, the
// model call, metadata extraction, scaffolding updates, phase progression and
// submission bookkeeping.
type ChatService struct {
	store         store.Store
	gateway       Gateway
	resolver      *scaffolding.Resolver
	responseCache *cache.TTLCache
	temperature   float64
	maxTokens     int
	historyLimit  int
	now           func() time.Time
}

// ChatServiceConfig holds the pipeline tunables. Clock defaults to the wall
// clock; tests inject a fake one to drive response-cache expiry.
type ChatServiceConfig struct {
	Temperature      float64
	MaxTokens        int
	HistoryLimit     int
	ResponseCacheTTL time.Duration
	Clock            cache.Clock
}

// NewChatService creates a ChatService.
func NewChatService(s store.Store, gateway Gateway, resolver *scaffolding.Resolver, cfg ChatServiceConfig) *ChatService {
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 8
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ChatService{
		store:         s,
		gateway:       gateway,
		resolver:      resolver,
		responseCache: cache.NewWithClock(cfg.ResponseCacheTTL, 0, clock),
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		historyLimit:  historyLimit,
		now:           clock,
	}
}

func errorEnvelope(msg, details string) models.ChatEnvelope {
	return models.ChatEnvelope{Error: msg, Details: details, Status: "error"}
}

func successEnvelope(data *models.ChatResponse) models.ChatEnvelope {
	return models.ChatEnvelope{Success: true, Data: data}
}

// responseCacheKey identifies a turn by user, phase and a digest of the
// message prefix. Only the first 100 characters matter; near-identical
// retries of long answers still hit.
func responseCacheKey(userID, phase, message string) string {
	trimmed := strings.TrimSpace(message)
	if len(trimmed) > responseCacheMessagePrefix {
		trimmed = trimmed[:responseCacheMessagePrefix]
	}
	sum := md5.Sum([]byte(trimmed))
	return fmt.Sprintf("%s:%s:%s", userID, phase, hex.EncodeToString(sum[:]))
}

// ProcessChat runs one tutoring turn. It always returns an envelope: logical
// failures travel inside it with Status "error" rather than as an error
// value, preserving the HTTP 200 contract with the frontend.
func (s *ChatService) ProcessChat(ctx context.Context, req models.ChatRequest) (envelope models.ChatEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR [ChatService] Panic while processing chat for user %s: %v", req.UserID, r)
			envelope = errorEnvelope("Internal server error", fmt.Sprintf("%v", r))
		}
	}()

	var missing []string
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if strings.TrimSpace(req.Phase) == "" {
		missing = append(missing, "phase")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return errorEnvelope("Missing required fields: "+strings.Join(missing, ", "), "")
	}

	phase := strings.ToLower(strings.TrimSpace(req.Phase))
	component := req.Component
	if component == "" {
		component = "general"
	}

	cacheKey := responseCacheKey(req.UserID, phase, req.Message)
	if cached, ok := s.responseCache.Get(cacheKey); ok {
		log.Printf("[ChatService] Response cache hit for user %s, phase %s", req.UserID, phase)
		resp := cached.(models.ChatResponse)
		return successEnvelope(&resp)
	}

	if phase == "intro" || phase == "summary" {
		return s.processScriptedPhase(ctx, req, phase, component)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	level := s.resolver.Current(ctx, req.UserID, phase, component)
	system := prompts.GetSystemPrompt(phase, component, level)
	if req.IsSubmission {
		system += prompts.SubmissionSuffix(phase, submissionTypeOrDefault(req.SubmissionType))
	}

	history := s.loadHistory(ctx, req.UserID, conversationID)

	if _, err := s.store.SaveMessage(ctx, store.SaveMessageParams{
		UserID:         req.UserID,
		ConversationID: conversationID,
		Role:           "user",
		Content:        req.Message,
		Phase:          phase,
		Component:      component,
	}); err != nil {
		log.Printf("WARN [ChatService] Failed to save user message for %s: %v", req.UserID, err)
	}

	result, err := s.gateway.CallModel(ctx, llm.CallParams{
		UserID:         req.UserID,
		ConversationID: conversationID,
		Phase:          phase,
		Component:      component,
		System:         system,
		Message:        req.Message,
		History:        history,
		Temperature:    s.temperature,
		MaxTokens:      s.maxTokens,
	})
	if err != nil {
		log.Printf("ERROR [ChatService] Model call failed for user %s: %v", req.UserID, err)
		return errorEnvelope("Failed to generate response", err.Error())
	}

	if result.Degraded {
		return s.processDegradedTurn(ctx, req, result, phase, component, conversationID, level)
	}

	visible, meta := extraction.Extract(result.Text)
	meta = extraction.Finalize(meta, phase)
	newLevel := *meta.ScaffoldingLevel

	if req.IsSubmission {
		s.recordSubmission(ctx, req, phase, component, conversationID, meta, level, newLevel)
	} else if newLevel != level {
		s.resolver.SetCached(req.UserID, phase, component, newLevel)
	}

	nextPhase := s.nextPhaseFor(phase, visible, meta)

	assistantMeta := map[string]interface{}{"scaffolding_level": newLevel}
	if meta.Score != nil {
		assistantMeta["score"] = *meta.Score
	}
	if meta.RawBlock != "" {
		assistantMeta["raw_metadata"] = meta.RawBlock
	}
	if _, err := s.store.SaveMessage(ctx, store.SaveMessageParams{
		UserID:         req.UserID,
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        visible,
		Phase:          phase,
		Component:      component,
		Metadata:       assistantMeta,
	}); err != nil {
		log.Printf("WARN [ChatService] Failed to save assistant message for %s: %v", req.UserID, err)
	}

	resp := models.ChatResponse{
		Message:          visible,
		ConversationID:   conversationID,
		Phase:            phase,
		Component:        component,
		AgentType:        phase,
		ScaffoldingLevel: newLevel,
		UserID:           req.UserID,
		Timestamp:        s.now().UTC().Format(time.RFC3339),
		Status:           "success",
		NextPhase:        nextPhase,
		Evaluation:       &meta,
	}

	if !req.IsSubmission {
		s.responseCache.Set(cacheKey, resp)
	}

	return successEnvelope(&resp)
}

// ProcessSubmission evaluates a formal submission through the same pipeline
// as a chat turn, then tags the payload as a submission.
func (s *ChatService) ProcessSubmission(ctx context.Context, req models.SubmitRequest) models.ChatEnvelope {
	submissionType := submissionTypeOrDefault(req.SubmissionType)

	envelope := s.ProcessChat(ctx, models.ChatRequest{
		UserID:         req.UserID,
		Phase:          req.Phase,
		Message:        req.Content,
		Component:      req.Component,
		ConversationID: req.ConversationID,
		IsSubmission:   true,
		SubmissionType: submissionType,
		AttemptNumber:  req.AttemptNumber,
	})

	if envelope.Data != nil {
		envelope.Data.SubmissionType = submissionType
		envelope.Data.IsSubmission = true
	}
	return envelope
}

// GetChatHistory returns a user's stored messages, scoped to one conversation
// when conversationID is non-empty.
func (s *ChatService) GetChatHistory(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if conversationID != "" {
		return s.store.GetConversationMessages(ctx, userID, conversationID, limit)
	}
	return s.store.GetUserMessages(ctx, userID, limit)
}

// processScriptedPhase handles intro and summary, which never reach the
// model. Both messages are persisted so history stays complete, but the
// response cache is left alone.
func (s *ChatService) processScriptedPhase(ctx context.Context, req models.ChatRequest, phase, component string) models.ChatEnvelope {
	conversationID := req.ConversationID
	var message string
	var nextPhase *string

	if phase == "intro" {
		if conversationID == "" {
			conversationID = "conv_" + uuid.NewString()
		}
		message = introMessage
		next := prompts.NextPhase(phase)
		nextPhase = &next
	} else {
		if conversationID == "" {
			conversationID = uuid.NewString()
		}
		message = summaryMessage
	}

	if _, err := s.store.SaveMessage(ctx, store.SaveMessageParams{
		UserID:         req.UserID,
		ConversationID: conversationID,
		Role:           "user",
		Content:        req.Message,
		Phase:          phase,
		Component:      component,
	}); err != nil {
		log.Printf("WARN [ChatService] Failed to save user message for %s: %v", req.UserID, err)
	}
	if _, err := s.store.SaveMessage(ctx, store.SaveMessageParams{
		UserID:         req.UserID,
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        message,
		Phase:          phase,
		Component:      component,
	}); err != nil {
		log.Printf("WARN [ChatService] Failed to save assistant message for %s: %v", req.UserID, err)
	}

	return successEnvelope(&models.ChatResponse{
		Message:          message,
		ConversationID:   conversationID,
		Phase:            phase,
		Component:        component,
		AgentType:        phase,
		ScaffoldingLevel: prompts.LevelMediumSupport,
		UserID:           req.UserID,
		Timestamp:        s.now().UTC().Format(time.RFC3339),
		Status:           "success",
		NextPhase:        nextPhase,
	})
}

// processDegradedTurn returns the canned apology the client produced when
// the model was unreachable. The reply is persisted but never cached, and no
// evaluation bookkeeping happens.
func (s *ChatService) processDegradedTurn(ctx context.Context, req models.ChatRequest, result llm.CallResult, phase, component, conversationID string, level int) models.ChatEnvelope {
	log.Printf("WARN [ChatService] Degraded reply for user %s, phase %s: %s", req.UserID, phase, result.FailureReason)

	if _, err := s.store.SaveMessage(ctx, store.SaveMessageParams{
		UserID:         req.UserID,
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        result.Text,
		Phase:          phase,
		Component:      component,
		Metadata:       map[string]interface{}{"degraded": true, "failure_reason": result.FailureReason},
	}); err != nil {
		log.Printf("WARN [ChatService] Failed to save degraded reply for %s: %v", req.UserID, err)
	}

	// The apology travels as the data payload; the underlying failure rides
	// in the envelope's error fields so the frontend can tell a degraded
	// reply from a real one.
	return models.ChatEnvelope{
		Success: true,
		Data: &models.ChatResponse{
			Message:          result.Text,
			ConversationID:   conversationID,
			Phase:            phase,
			Component:        component,
			AgentType:        phase,
			ScaffoldingLevel: level,
			UserID:           req.UserID,
			Timestamp:        s.now().UTC().Format(time.RFC3339),
			Status:           "degraded",
		},
		Error:   "Failed to generate response",
		Details: result.FailureReason,
	}
}

// loadHistory converts recent stored messages into model turns.
func (s *ChatService) loadHistory(ctx context.Context, userID, conversationID string) []llm.Turn {
	msgs, err := s.store.GetConversationMessages(ctx, userID, conversationID, s.historyLimit)
	if err != nil {
		log.Printf("WARN [ChatService] Failed to load history for %s: %v", userID, err)
		return nil
	}
	turns := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		if role != "user" && role != "assistant" {
			continue
		}
		turns = append(turns, llm.Turn{Role: role, Content: m.Content})
	}
	return turns
}

// recordSubmission writes the submission row, its assessment when a score
// exists, and the scaffolding audit record. Persistence failures are logged;
// the student still gets their feedback.
func (s *ChatService) recordSubmission(ctx context.Context, req models.ChatRequest, phase, component, conversationID string, meta models.ExtractedMetadata, previousLevel, newLevel int) {
	attempt := req.AttemptNumber
	if attempt <= 0 {
		attempt = 1
	}

	status := "submitted"
	if meta.Score != nil {
		status = "evaluated"
	}

	sub, err := s.store.CreateSubmission(ctx, store.CreateSubmissionParams{
		UserID:           req.UserID,
		Phase:            phase,
		Component:        component,
		ConversationID:   conversationID,
		SubmissionType:   submissionTypeOrDefault(req.SubmissionType),
		Content:          req.Message,
		Score:            meta.Score,
		ScaffoldingLevel: newLevel,
		Status:           status,
		AttemptNumber:    attempt,
	})
	if err != nil {
		log.Printf("ERROR [ChatService] Failed to record submission for %s: %v", req.UserID, err)
		return
	}

	if meta.Score != nil {
		if _, err := s.store.CreateAssessment(ctx, store.CreateAssessmentParams{
			SubmissionID:   sub.ID,
			Score:          *meta.Score,
			Feedback:       meta.Rationale,
			CriteriaScores: meta.Criteria,
			AssessedBy:     "llm:" + s.gateway.ModelName(),
		}); err != nil {
			log.Printf("ERROR [ChatService] Failed to record assessment for submission %s: %v", sub.ID, err)
		}
	}

	reason := "submission evaluation"
	if meta.Score != nil {
		reason = fmt.Sprintf("submission scored %.1f", *meta.Score)
	}
	prev := previousLevel
	if err := s.resolver.Persist(ctx, store.CreateScaffoldingRecordParams{
		UserID:         req.UserID,
		Phase:          phase,
		Component:      component,
		Level:          newLevel,
		PreviousLevel:  &prev,
		Reason:         reason,
		ConversationID: conversationID,
	}); err != nil {
		log.Printf("WARN [ChatService] Failed to persist scaffolding level for %s: %v", req.UserID, err)
	}
}

// nextPhaseFor decides whether this turn unlocks the next phase. The
// structured signal from the metadata block is authoritative; the exact
// congratulation phrase is accepted as well for replies where the model
// followed the visible-text instruction but fumbled the metadata.
func (s *ChatService) nextPhaseFor(phase, visible string, meta models.ExtractedMetadata) *string {
	advance := meta.ReadyToAdvance
	if !advance {
		if phrase := prompts.TemplateFor(phase).ExcellencePhrase; phrase != "" && strings.Contains(visible, phrase) {
			advance = true
		}
	}
	if !advance {
		return nil
	}
	next := prompts.NextPhase(phase)
	if next == "" {
		return nil
	}
	return &next
}

func submissionTypeOrDefault(t string) string {
	if t == "" {
		return "text"
	}
	return t
}
