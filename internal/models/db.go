package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a single stored conversation message. Messages are
// append-only: once written they are never updated.
type Message struct {
	ID             uuid.UUID              `db:"id" json:"id"`
	UserID         string                 `db:"user_id" json:"user_id"`
	ConversationID string                 `db:"conversation_id" json:"conversation_id"`
	Role           string                 `db:"role" json:"role"` // "user" or "assistant"
	Content        string                 `db:"content" json:"content"`
	Phase          string                 `db:"phase" json:"phase"`
	Component      string                 `db:"component" json:"component"`
	Metadata       map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	Timestamp      time.Time              `db:"timestamp" json:"timestamp"`
}

// Submission represents a student's formal answer submitted for scored
// evaluation. Rows are append-only history; AttemptNumber distinguishes
// repeated submissions of the same component.
type Submission struct {
	ID               uuid.UUID              `db:"id" json:"id"`
	UserID           string                 `db:"user_id" json:"user_id"`
	Phase            string                 `db:"phase" json:"phase"`
	Component        string                 `db:"component" json:"component"`
	ConversationID   string                 `db:"conversation_id" json:"conversation_id"`
	SubmissionType   string                 `db:"submission_type" json:"submission_type"`
	Content          string                 `db:"content" json:"content"`
	Score            *float64               `db:"score" json:"score,omitempty"`
	ScaffoldingLevel int                    `db:"scaffolding_level" json:"scaffolding_level"`
	Status           string                 `db:"status" json:"status"` // "evaluated" or "submitted"
	AttemptNumber    int                    `db:"attempt_number" json:"attempt_number"`
	Metadata         map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	SubmittedAt      time.Time              `db:"submitted_at" json:"submitted_at"`
}

// Assessment holds the scored evaluation produced for a submission.
// There is at most one assessment per submission, created only when the
// model reply yielded a numeric score.
type Assessment struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	SubmissionID   uuid.UUID      `db:"submission_id" json:"submission_id"`
	Score          float64        `db:"score" json:"score"`
	Feedback       string         `db:"feedback" json:"feedback"`
	CriteriaScores map[string]int `db:"criteria_scores" json:"criteria_scores,omitempty"`
	AssessedBy     string         `db:"assessed_by" json:"assessed_by"` // e.g. "llm:claude-3-5-sonnet-20241022"
	AssessedAt     time.Time      `db:"assessed_at" json:"assessed_at"`
}

// ScaffoldingLevelRecord is one entry in the append-only audit trail of
// support-level changes. The current level for a (user, phase, component) is
// the most recent record.
type ScaffoldingLevelRecord struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Phase          string    `db:"phase" json:"phase"`
	Component      string    `db:"component" json:"component"`
	Level          int       `db:"level" json:"level"`
	PreviousLevel  *int      `db:"previous_level" json:"previous_level,omitempty"`
	Reason         string    `db:"reason" json:"reason,omitempty"`
	ConversationID string    `db:"conversation_id" json:"conversation_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// LLMInteraction is the audit record written for every model call attempt,
// cache hits and failures included.
type LLMInteraction struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	MessageID      string    `db:"message_id" json:"message_id,omitempty"`
	Phase          string    `db:"phase" json:"phase"`
	Component      string    `db:"component" json:"component"`
	SystemPrompt   string    `db:"system_prompt" json:"system_prompt"`
	UserMessage    string    `db:"user_message" json:"user_message"`
	RawResponse    string    `db:"raw_response" json:"raw_response"`
	ModelName      string    `db:"model_name" json:"model_name"`
	Temperature    float64   `db:"temperature" json:"temperature"`
	MaxTokens      int       `db:"max_tokens" json:"max_tokens"`
	InputTokens    int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens   int       `db:"output_tokens" json:"output_tokens"`
	DurationMs     int64     `db:"duration_ms" json:"duration_ms"`
	CacheHit       bool      `db:"cache_hit" json:"cache_hit"`
	Error          string    `db:"error" json:"error,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// UserDataItem is an opaque typed key/value row attached to a user, used by
// the frontend for profile answers and survey responses.
type UserDataItem struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	UserID    string                 `db:"user_id" json:"user_id"`
	DataType  string                 `db:"data_type" json:"data_type"`
	Value     string                 `db:"value" json:"value"`
	Metadata  map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}
