package store

import (
	"context"
	"errors"
	"log"

	"solbot-backend/internal/models"
)

// Compile-time check to ensure FallbackStore implements Store
var _ Store = (*FallbackStore)(nil)

// FallbackStore wraps a primary Store and retries every failed operation
// against a secondary (typically in-memory) Store. A tutoring exchange must
// never fail because an audit row could not be written, so read errors fall
// through to the secondary and write errors are absorbed after the retry.
type FallbackStore struct {
	primary   Store
	secondary Store
}

// WithFallback wraps primary so that failed operations are retried against
// secondary.
func WithFallback(primary, secondary Store) *FallbackStore {
	return &FallbackStore{primary: primary, secondary: secondary}
}

func (s *FallbackStore) SaveMessage(ctx context.Context, arg SaveMessageParams) (*models.Message, error) {
	msg, err := s.primary.SaveMessage(ctx, arg)
	if err != nil {
		log.Printf("WARN [FallbackStore] SaveMessage failed on primary, using fallback: %v", err)
		return s.secondary.SaveMessage(ctx, arg)
	}
	return msg, nil
}

func (s *FallbackStore) GetConversationMessages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	msgs, err := s.primary.GetConversationMessages(ctx, userID, conversationID, limit)
	if err != nil {
		log.Printf("WARN [FallbackStore] GetConversationMessages failed on primary, using fallback: %v", err)
		return s.secondary.GetConversationMessages(ctx, userID, conversationID, limit)
	}
	return msgs, nil
}

func (s *FallbackStore) GetUserMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	msgs, err := s.primary.GetUserMessages(ctx, userID, limit)
	if err != nil {
		log.Printf("WARN [FallbackStore] GetUserMessages failed on primary, using fallback: %v", err)
		return s.secondary.GetUserMessages(ctx, userID, limit)
	}
	return msgs, nil
}

func (s *FallbackStore) CreateSubmission(ctx context.Context, arg CreateSubmissionParams) (*models.Submission, error) {
	sub, err := s.primary.CreateSubmission(ctx, arg)
	if err != nil {
		log.Printf("WARN [FallbackStore] CreateSubmission failed on primary, using fallback: %v", err)
		return s.secondary.CreateSubmission(ctx, arg)
	}
	return sub, nil
}

func (s *FallbackStore) CreateAssessment(ctx context.Context, arg CreateAssessmentParams) (*models.Assessment, error) {
	a, err := s.primary.CreateAssessment(ctx, arg)
	if err != nil {
		log.Printf("WARN [FallbackStore] CreateAssessment failed on primary, using fallback: %v", err)
		return s.secondary.CreateAssessment(ctx, arg)
	}
	return a, nil
}

func (s *FallbackStore) CreateScaffoldingRecord(ctx context.Context, arg CreateScaffoldingRecordParams) (*models.ScaffoldingLevelRecord, error) {
	rec, err := s.primary.CreateScaffoldingRecord(ctx, arg)
	if err != nil {
		log.Printf("WARN [FallbackStore] CreateScaffoldingRecord failed on primary, using fallback: %v", err)
		return s.secondary.CreateScaffoldingRecord(ctx, arg)
	}
	return rec, nil
}

func (s *FallbackStore) GetLatestScaffoldingLevel(ctx context.Context, userID, phase, component string) (int, error) {
	level, err := s.primary.GetLatestScaffoldingLevel(ctx, userID, phase, component)
	if err == nil {
		return level, nil
	}
	if errors.Is(err, ErrNotFound) {
		// The fallback may still hold a level written after a primary outage.
		return s.secondary.GetLatestScaffoldingLevel(ctx, userID, phase, component)
	}
	log.Printf("WARN [FallbackStore] GetLatestScaffoldingLevel failed on primary, using fallback: %v", err)
	return s.secondary.GetLatestScaffoldingLevel(ctx, userID, phase, component)
}

func (s *FallbackStore) SaveLLMInteraction(ctx context.Context, interaction models.LLMInteraction) error {
	if err := s.primary.SaveLLMInteraction(ctx, interaction); err != nil {
		log.Printf("WARN [FallbackStore] SaveLLMInteraction failed on primary, using fallback: %v", err)
		return s.secondary.SaveLLMInteraction(ctx, interaction)
	}
	return nil
}

func (s *FallbackStore) SaveUserData(ctx context.Context, arg SaveUserDataParams) (*models.UserDataItem, error) {
	item, err := s.primary.SaveUserData(ctx, arg)
	if err != nil {
		log.Printf("WARN [FallbackStore] SaveUserData failed on primary, using fallback: %v", err)
		return s.secondary.SaveUserData(ctx, arg)
	}
	return item, nil
}

func (s *FallbackStore) GetUserData(ctx context.Context, userID, dataType string) ([]models.UserDataItem, error) {
	items, err := s.primary.GetUserData(ctx, userID, dataType)
	if err != nil {
		log.Printf("WARN [FallbackStore] GetUserData failed on primary, using fallback: %v", err)
		return s.secondary.GetUserData(ctx, userID, dataType)
	}
	return items, nil
}
