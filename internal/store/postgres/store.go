package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"solbot-backend/internal/models"
	"solbot-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// marshalMetadata converts a metadata map to JSONB bytes, tolerating nil.
func marshalMetadata(m map[string]interface{}) []byte {
	if m == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		log.Printf("WARN [PostgresStore] Failed to marshal metadata, storing empty object: %v", err)
		return []byte("{}")
	}
	return b
}

func unmarshalMetadata(b []byte) map[string]interface{} {
	if len(b) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		log.Printf("WARN [PostgresStore] Failed to unmarshal metadata column: %v", err)
		return nil
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// SaveMessage appends a message row and returns the stored record.
func (s *PostgresStore) SaveMessage(ctx context.Context, arg store.SaveMessageParams) (*models.Message, error) {
	msg := &models.Message{
		ID:             uuid.New(),
		UserID:         arg.UserID,
		ConversationID: arg.ConversationID,
		Role:           arg.Role,
		Content:        arg.Content,
		Phase:          arg.Phase,
		Component:      arg.Component,
		Metadata:       arg.Metadata,
	}

	query := `
		INSERT INTO messages (id, user_id, conversation_id, role, content, phase, component, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING timestamp`

	err := s.db.QueryRow(ctx, query,
		msg.ID,
		msg.UserID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Phase,
		msg.Component,
		marshalMetadata(arg.Metadata),
	).Scan(&msg.Timestamp)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Printf("ERROR [PostgresStore] SaveMessage: PostgreSQL error: Code=%s, Message=%s", pgErr.Code, pgErr.Message)
		} else {
			log.Printf("ERROR [PostgresStore] SaveMessage: %v", err)
		}
		return nil, fmt.Errorf("database error saving message: %w", err)
	}

	return msg, nil
}

// GetConversationMessages returns the most recent `limit` messages of a
// conversation, ordered oldest first.
func (s *PostgresStore) GetConversationMessages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, user_id, conversation_id, role, content, phase, component, metadata, timestamp
		FROM (
			SELECT id, user_id, conversation_id, role, content, phase, component, metadata, timestamp
			FROM messages
			WHERE user_id = $1 AND conversation_id = $2
			ORDER BY timestamp DESC
			LIMIT $3
		) recent
		ORDER BY timestamp ASC`

	rows, err := s.db.Query(ctx, query, userID, conversationID, limit)
	if err != nil {
		log.Printf("ERROR [PostgresStore] GetConversationMessages: %v", err)
		return nil, fmt.Errorf("database error fetching conversation messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetUserMessages returns the most recent `limit` messages for a user across
// all conversations, ordered oldest first.
func (s *PostgresStore) GetUserMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, user_id, conversation_id, role, content, phase, component, metadata, timestamp
		FROM (
			SELECT id, user_id, conversation_id, role, content, phase, component, metadata, timestamp
			FROM messages
			WHERE user_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		log.Printf("ERROR [PostgresStore] GetUserMessages: %v", err)
		return nil, fmt.Errorf("database error fetching user messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]models.Message, error) {
	var out []models.Message
	for rows.Next() {
		var m models.Message
		var meta []byte
		if err := rows.Scan(&m.ID, &m.UserID, &m.ConversationID, &m.Role, &m.Content, &m.Phase, &m.Component, &meta, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("database error scanning message row: %w", err)
		}
		m.Metadata = unmarshalMetadata(meta)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating message rows: %w", err)
	}
	return out, nil
}

// CreateSubmission inserts a submission row. Submissions are append-only;
// there is no update path.
func (s *PostgresStore) CreateSubmission(ctx context.Context, arg store.CreateSubmissionParams) (*models.Submission, error) {
	sub := &models.Submission{
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
	}

	query := `
		INSERT INTO submissions (id, user_id, phase, component, conversation_id, submission_type,
			content, score, scaffolding_level, status, attempt_number, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING submitted_at`

	err := s.db.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Phase,
		sub.Component,
		sub.ConversationID,
		sub.SubmissionType,
		sub.Content,
		sub.Score,
		sub.ScaffoldingLevel,
		sub.Status,
		sub.AttemptNumber,
		marshalMetadata(arg.Metadata),
	).Scan(&sub.SubmittedAt)

	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateSubmission: %v", err)
		return nil, fmt.Errorf("database error creating submission: %w", err)
	}

	log.Printf("[PostgresStore] CreateSubmission: Saved submission %s for user %s, phase %s", sub.ID, sub.UserID, sub.Phase)
	return sub, nil
}

// CreateAssessment inserts the scored evaluation for a submission.
func (s *PostgresStore) CreateAssessment(ctx context.Context, arg store.CreateAssessmentParams) (*models.Assessment, error) {
	a := &models.Assessment{
		ID:             uuid.New(),
		SubmissionID:   arg.SubmissionID,
		Score:          arg.Score,
		Feedback:       arg.Feedback,
		CriteriaScores: arg.CriteriaScores,
		AssessedBy:     arg.AssessedBy,
	}

	criteriaJSON, err := json.Marshal(arg.CriteriaScores)
	if err != nil {
		criteriaJSON = []byte("{}")
	}

	query := `
		INSERT INTO assessments (id, submission_id, score, feedback, criteria_scores, assessed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING assessed_at`

	err = s.db.QueryRow(ctx, query,
		a.ID,
		a.SubmissionID,
		a.Score,
		a.Feedback,
		criteriaJSON,
		a.AssessedBy,
	).Scan(&a.AssessedAt)

	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateAssessment: %v", err)
		return nil, fmt.Errorf("database error creating assessment: %w", err)
	}

	log.Printf("[PostgresStore] CreateAssessment: Saved assessment %s for submission %s", a.ID, a.SubmissionID)
	return a, nil
}

// CreateScaffoldingRecord appends one entry to the scaffolding audit trail.
func (s *PostgresStore) CreateScaffoldingRecord(ctx context.Context, arg store.CreateScaffoldingRecordParams) (*models.ScaffoldingLevelRecord, error) {
	rec := &models.ScaffoldingLevelRecord{
		ID:             uuid.New(),
		UserID:         arg.UserID,
		Phase:          arg.Phase,
		Component:      arg.Component,
		Level:          arg.Level,
		PreviousLevel:  arg.PreviousLevel,
		Reason:         arg.Reason,
		ConversationID: arg.ConversationID,
	}

	query := `
		INSERT INTO scaffolding_levels (id, user_id, phase, component, level, previous_level, reason, conversation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Phase,
		rec.Component,
		rec.Level,
		rec.PreviousLevel,
		rec.Reason,
		rec.ConversationID,
	).Scan(&rec.CreatedAt)

	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateScaffoldingRecord: %v", err)
		return nil, fmt.Errorf("database error creating scaffolding record: %w", err)
	}

	return rec, nil
}

// GetLatestScaffoldingLevel returns the most recent audit-trail level for a
// (user, phase, component), or store.ErrNotFound when none exists.
func (s *PostgresStore) GetLatestScaffoldingLevel(ctx context.Context, userID, phase, component string) (int, error) {
	query := `
		SELECT level
		FROM scaffolding_levels
		WHERE user_id = $1 AND phase = $2 AND component = $3
		ORDER BY created_at DESC
		LIMIT 1`

	var level int
	err := s.db.QueryRow(ctx, query, userID, phase, component).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetLatestScaffoldingLevel: %v", err)
		return 0, fmt.Errorf("database error fetching scaffolding level: %w", err)
	}
	return level, nil
}

// SaveLLMInteraction writes one audit row for a model call attempt.
func (s *PostgresStore) SaveLLMInteraction(ctx context.Context, interaction models.LLMInteraction) error {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}

	query := `
		INSERT INTO llm_interactions (id, user_id, conversation_id, message_id, phase, component,
			system_prompt, user_message, raw_response, model_name, temperature, max_tokens,
			input_tokens, output_tokens, duration_ms, cache_hit, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := s.db.Exec(ctx, query,
		interaction.ID,
		interaction.UserID,
		interaction.ConversationID,
		interaction.MessageID,
		interaction.Phase,
		interaction.Component,
		interaction.SystemPrompt,
		interaction.UserMessage,
		interaction.RawResponse,
		interaction.ModelName,
		interaction.Temperature,
		interaction.MaxTokens,
		interaction.InputTokens,
		interaction.OutputTokens,
		interaction.DurationMs,
		interaction.CacheHit,
		interaction.Error,
	)

	if err != nil {
		log.Printf("ERROR [PostgresStore] SaveLLMInteraction: %v", err)
		return fmt.Errorf("database error saving llm interaction: %w", err)
	}
	return nil
}

// SaveUserData inserts an opaque typed key/value row for a user.
func (s *PostgresStore) SaveUserData(ctx context.Context, arg store.SaveUserDataParams) (*models.UserDataItem, error) {
	item := &models.UserDataItem{
		ID:       uuid.New(),
		UserID:   arg.UserID,
		DataType: arg.DataType,
		Value:    arg.Value,
		Metadata: arg.Metadata,
	}

	query := `
		INSERT INTO user_data (id, user_id, data_type, value, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		item.ID,
		item.UserID,
		item.DataType,
		item.Value,
		marshalMetadata(arg.Metadata),
	).Scan(&item.CreatedAt)

	if err != nil {
		log.Printf("ERROR [PostgresStore] SaveUserData: %v", err)
		return nil, fmt.Errorf("database error saving user data: %w", err)
	}
	return item, nil
}

// GetUserData returns a user's data rows, newest first, optionally filtered
// by data type.
func (s *PostgresStore) GetUserData(ctx context.Context, userID, dataType string) ([]models.UserDataItem, error) {
	query := `
		SELECT id, user_id, data_type, value, metadata, created_at
		FROM user_data
		WHERE user_id = $1 AND ($2 = '' OR data_type = $2)
		ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, userID, dataType)
	if err != nil {
		log.Printf("ERROR [PostgresStore] GetUserData: %v", err)
		return nil, fmt.Errorf("database error fetching user data: %w", err)
	}
	defer rows.Close()

	var out []models.UserDataItem
	for rows.Next() {
		var item models.UserDataItem
		var meta []byte
		if err := rows.Scan(&item.ID, &item.UserID, &item.DataType, &item.Value, &meta, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("database error scanning user data row: %w", err)
		}
		item.Metadata = unmarshalMetadata(meta)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating user data rows: %w", err)
	}
	return out, nil
}
