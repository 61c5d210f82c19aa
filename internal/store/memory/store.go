// Package memory provides an in-memory Store implementation. It backs the
// service when no DATABASE_URL is configured and serves as the best-effort
// fallback target when Postgres writes fail: losing an audit row to process
// restart is preferable to failing a tutoring response.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solbot-backend/internal/models"
	"solbot-backend/internal/store"

	"github.com/google/uuid"
)

// Compile-time check to ensure MemoryStore implements store.Store
var _ store.Store = (*MemoryStore)(nil)

// MemoryStore keeps all records in process memory, guarded by a single mutex.
type MemoryStore struct {
	mu                 sync.Mutex
	messages           []models.Message
	submissions        []models.Submission
	assessments        []models.Assessment
	scaffoldingRecords []models.ScaffoldingLevelRecord
	llmInteractions    []models.LLMInteraction
	userData           []models.UserDataItem
	now                func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) SaveMessage(ctx context.Context, arg store.SaveMessageParams) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:             uuid.New(),
		UserID:         arg.UserID,
		ConversationID: arg.ConversationID,
		Role:           arg.Role,
		Content:        arg.Content,
		Phase:          arg.Phase,
		Component:      arg.Component,
		Metadata:       arg.Metadata,
		Timestamp:      s.now(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *MemoryStore) GetConversationMessages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Message
	for _, m := range s.messages {
		if m.UserID == userID && m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:] // most recent N, oldest first
	}
	return out, nil
}

func (s *MemoryStore) GetUserMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Message
	for _, m := range s.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *MemoryStore) CreateSubmission(ctx context.Context, arg store.CreateSubmissionParams) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := models.Submission{
		ID:               uuid.New(),
		UserID:           arg.UserID,
		Phase:            arg.Phase,
		Component:        arg.Component,
		ConversationID:   arg.ConversationID,
		SubmissionType:   arg.SubmissionType,
		Content:          arg.Content,
		Score:            arg.Score,
		ScaffoldingLevel: arg.ScaffoldingLevel,
		Status:           arg.Status,
		AttemptNumber:    arg.AttemptNumber,
		Metadata:         arg.Metadata,
		SubmittedAt:      s.now(),
	}
	s.submissions = append(s.submissions, sub)
	return &sub, nil
}

func (s *MemoryStore) CreateAssessment(ctx context.Context, arg store.CreateAssessmentParams) (*models.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := models.Assessment{
		ID:             uuid.New(),
		SubmissionID:   arg.SubmissionID,
		Score:          arg.Score,
		Feedback:       arg.Feedback,
		CriteriaScores: arg.CriteriaScores,
		AssessedBy:     arg.AssessedBy,
		AssessedAt:     s.now(),
	}
	s.assessments = append(s.assessments, a)
	return &a, nil
}

func (s *MemoryStore) CreateScaffoldingRecord(ctx context.Context, arg store.CreateScaffoldingRecordParams) (*models.ScaffoldingLevelRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := models.ScaffoldingLevelRecord{
		ID:             uuid.New(),
		UserID:         arg.UserID,
		Phase:          arg.Phase,
		Component:      arg.Component,
		Level:          arg.Level,
		PreviousLevel:  arg.PreviousLevel,
		Reason:         arg.Reason,
		ConversationID: arg.ConversationID,
		CreatedAt:      s.now(),
	}
	s.scaffoldingRecords = append(s.scaffoldingRecords, rec)
	return &rec, nil
}

func (s *MemoryStore) GetLatestScaffoldingLevel(ctx context.Context, userID, phase, component string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Records are appended in order, so scan backwards for the newest match.
	for i := len(s.scaffoldingRecords) - 1; i >= 0; i-- {
		rec := s.scaffoldingRecords[i]
		if rec.UserID == userID && rec.Phase == phase && rec.Component == component {
			return rec.Level, nil
		}
	}
	return 0, store.ErrNotFound
}

func (s *MemoryStore) SaveLLMInteraction(ctx context.Context, interaction models.LLMInteraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = s.now()
	}
	s.llmInteractions = append(s.llmInteractions, interaction)
	return nil
}

func (s *MemoryStore) SaveUserData(ctx context.Context, arg store.SaveUserDataParams) (*models.UserDataItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := models.UserDataItem{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		DataType:  arg.DataType,
		Value:     arg.Value,
		Metadata:  arg.Metadata,
		CreatedAt: s.now(),
	}
	s.userData = append(s.userData, item)
	return &item, nil
}

func (s *MemoryStore) GetUserData(ctx context.Context, userID, dataType string) ([]models.UserDataItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.UserDataItem
	for _, item := range s.userData {
		if item.UserID != userID {
			continue
		}
		if dataType != "" && item.DataType != dataType {
			continue
		}
		out = append(out, item)
	}
	// Newest first, matching the Postgres query ordering.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
