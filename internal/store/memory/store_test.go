package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"solbot-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConversationMessagesReturnsRecentOldestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.SaveMessage(ctx, store.SaveMessageParams{
			UserID: "u1", ConversationID: "c1", Role: "user", Content: fmt.Sprintf("msg-%d", i),
		})
		require.NoError(t, err)
	}

	msgs, err := s.GetConversationMessages(ctx, "u1", "c1", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-2", msgs[0].Content)
	assert.Equal(t, "msg-4", msgs[2].Content)
}

func TestGetConversationMessagesFiltersByUserAndConversation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.SaveMessage(ctx, store.SaveMessageParams{UserID: "u1", ConversationID: "c1", Role: "user", Content: "mine"})
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, store.SaveMessageParams{UserID: "u2", ConversationID: "c1", Role: "user", Content: "other user"})
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, store.SaveMessageParams{UserID: "u1", ConversationID: "c2", Role: "user", Content: "other conv"})
	require.NoError(t, err)

	msgs, err := s.GetConversationMessages(ctx, "u1", "c1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "mine", msgs[0].Content)
}

func TestGetLatestScaffoldingLevel(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetLatestScaffoldingLevel(ctx, "u1", "phase2", "general")
	assert.ErrorIs(t, err, store.ErrNotFound)

	for _, level := range []int{2, 1, 3} {
		_, err := s.CreateScaffoldingRecord(ctx, store.CreateScaffoldingRecordParams{
			UserID: "u1", Phase: "phase2", Component: "general", Level: level,
		})
		require.NoError(t, err)
	}

	level, err := s.GetLatestScaffoldingLevel(ctx, "u1", "phase2", "general")
	require.NoError(t, err)
	assert.Equal(t, 3, level, "the most recent record wins")
}

func TestSubmissionAndAssessmentRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	score := 2.4
	sub, err := s.CreateSubmission(ctx, store.CreateSubmissionParams{
		UserID: "u1", Phase: "phase4", Component: "long_term_goals",
		Content: "goal text", Score: &score, Status: "evaluated", AttemptNumber: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", sub.ID.String())

	a, err := s.CreateAssessment(ctx, store.CreateAssessmentParams{
		SubmissionID: sub.ID, Score: score, Feedback: "solid", AssessedBy: "llm:test-model",
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, a.SubmissionID)
}

func TestGetUserDataFiltersAndOrders(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()

	_, err := s.SaveUserData(ctx, store.SaveUserDataParams{UserID: "u1", DataType: "profile", Value: "first"})
	require.NoError(t, err)
	_, err = s.SaveUserData(ctx, store.SaveUserDataParams{UserID: "u1", DataType: "survey", Value: "second"})
	require.NoError(t, err)
	_, err = s.SaveUserData(ctx, store.SaveUserDataParams{UserID: "u1", DataType: "profile", Value: "third"})
	require.NoError(t, err)

	all, err := s.GetUserData(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Value, "newest first")

	profiles, err := s.GetUserData(ctx, "u1", "profile")
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}
