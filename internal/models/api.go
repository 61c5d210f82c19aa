package models

// --- Request Structs ---

// ChatRequest defines the expected body for the chat endpoint.
// UserID, Phase and Message are required; everything else is optional.
type ChatRequest struct {
	UserID         string `json:"user_id"`
	Phase          string `json:"phase"`
	Message        string `json:"message"`
	Component      string `json:"component,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	IsSubmission   bool   `json:"is_submission,omitempty"`
	SubmissionType string `json:"submission_type,omitempty"`
	AttemptNumber  int    `json:"attempt_number,omitempty"`
	// RawMessage preserves the student's text before any frontend rewriting.
	RawMessage string `json:"raw_message,omitempty"`
}

// SubmitRequest defines the body for the submit endpoint. It mirrors
// ChatRequest but names the payload field "content" for historical reasons.
type SubmitRequest struct {
	UserID         string `json:"user_id"`
	Phase          string `json:"phase"`
	Content        string `json:"content"`
	Component      string `json:"component,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	SubmissionType string `json:"submission_type,omitempty"`
	AttemptNumber  int    `json:"attempt_number,omitempty"`
}

// SaveUserDataRequest defines the body for storing an opaque user-data row.
type SaveUserDataRequest struct {
	DataType string                 `json:"data_type"`
	Value    string                 `json:"value"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// --- Response Structs ---

// ExtractedMetadata is the structured evaluation block parsed out of a model
// reply. All fields are optional: whatever the parser could not recover is
// simply absent.
type ExtractedMetadata struct {
	Score            *float64       `json:"score,omitempty"`
	ScaffoldingLevel *int           `json:"scaffolding_level,omitempty"`
	Criteria         map[string]int `json:"criteria,omitempty"`
	Rationale        string         `json:"rationale,omitempty"`
	// ReadyToAdvance is derived from Score against the active phase's
	// excellence threshold. It is the control signal for phase progression,
	// decoupled from any particular congratulation wording.
	ReadyToAdvance bool `json:"ready_to_advance"`
	// RawBlock holds the original metadata text as it appeared in the reply.
	RawBlock string `json:"raw_block,omitempty"`
}

// ChatResponse is the data payload returned for a processed chat turn.
type ChatResponse struct {
	Message          string             `json:"message"`
	ConversationID   string             `json:"conversation_id"`
	Phase            string             `json:"phase"`
	Component        string             `json:"component"`
	AgentType        string             `json:"agent_type"`
	ScaffoldingLevel int                `json:"scaffolding_level"`
	UserID           string             `json:"user_id"`
	Timestamp        string             `json:"timestamp"`
	Status           string             `json:"status"`
	NextPhase        *string            `json:"next_phase"`
	Evaluation       *ExtractedMetadata `json:"evaluation,omitempty"`
	SubmissionType   string             `json:"submission_type,omitempty"`
	IsSubmission     bool               `json:"is_submission,omitempty"`
}

// ChatEnvelope wraps every chat response. Logical failures (validation,
// gateway breakdown, internal errors) travel in the same envelope with
// Status "error" and HTTP 200, the frontend contract inherited from the
// original service.
type ChatEnvelope struct {
	Success bool          `json:"success,omitempty"`
	Data    *ChatResponse `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
	Details string        `json:"details,omitempty"`
	Status  string        `json:"status,omitempty"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
