package store

import (
	"context"
	"errors"

	"solbot-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// SaveMessageParams contains parameters for appending a conversation message.
type SaveMessageParams struct {
	UserID         string
	ConversationID string
	Role           string // "user" or "assistant"
	Content        string
	Phase          string
	Component      string
	Metadata       map[string]interface{}
}

// CreateSubmissionParams contains parameters for recording a student
// submission. Score is nil when the evaluation produced no numeric score.
type CreateSubmissionParams struct {
	UserID           string
	Phase            string
	Component        string
	ConversationID   string
	SubmissionType   string
	Content          string
	Score            *float64
	ScaffoldingLevel int
	Status           string
	AttemptNumber    int
	Metadata         map[string]interface{}
}

// CreateAssessmentParams contains parameters for recording the scored
// evaluation of a submission.
type CreateAssessmentParams struct {
	SubmissionID   uuid.UUID
	Score          float64
	Feedback       string
	CriteriaScores map[string]int
	AssessedBy     string
}

// CreateScaffoldingRecordParams contains parameters for appending a
// scaffolding-level audit record.
type CreateScaffoldingRecordParams struct {
	UserID         string
	Phase          string
	Component      string
	Level          int
	PreviousLevel  *int
	Reason         string
	ConversationID string
}

// SaveUserDataParams contains parameters for storing an opaque user-data row.
type SaveUserDataParams struct {
	UserID   string
	DataType string
	Value    string
	Metadata map[string]interface{}
}

// Store defines the interface for persistence operations.
// This allows for mocking in tests and the in-memory fallback backend.
type Store interface {
	// Message operations (append-only)
	SaveMessage(ctx context.Context, arg SaveMessageParams) (*models.Message, error)
	GetConversationMessages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error)
	GetUserMessages(ctx context.Context, userID string, limit int) ([]models.Message, error)

	// Submission / assessment operations (append-only)
	CreateSubmission(ctx context.Context, arg CreateSubmissionParams) (*models.Submission, error)
	CreateAssessment(ctx context.Context, arg CreateAssessmentParams) (*models.Assessment, error)

	// Scaffolding audit trail
	CreateScaffoldingRecord(ctx context.Context, arg CreateScaffoldingRecordParams) (*models.ScaffoldingLevelRecord, error)
	// GetLatestScaffoldingLevel returns ErrNotFound when the user has no
	// recorded level for the phase/component.
	GetLatestScaffoldingLevel(ctx context.Context, userID, phase, component string) (int, error)

	// LLM call auditing
	SaveLLMInteraction(ctx context.Context, interaction models.LLMInteraction) error

	// Opaque user data
	SaveUserData(ctx context.Context, arg SaveUserDataParams) (*models.UserDataItem, error)
	GetUserData(ctx context.Context, userID, dataType string) ([]models.UserDataItem, error)
}
