package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidalert/aidalert/internal/models"
	apperrors "github.com/aidalert/aidalert/pkg/errors"
)

func newFeedbackService(t *testing.T, s *testServices) *FeedbackService {
	t.Helper()

	feedback, err := NewFeedbackService(s.db)
	require.NoError(t, err)
	return feedback
}

func TestSubmitFeedbackDerivesSentiment(t *testing.T) {
	s := newTestServices(t)
	feedback := newFeedbackService(t, s)
	user := createTestUser(t, s.db, "reviewer", models.RoleUser)

	cases := []struct {
		rating    int
		sentiment string
	}{
		{5, models.SentimentPositive},
		{4, models.SentimentPositive},
		{3, models.SentimentNeutral},
		{2, models.SentimentNegative},
		{1, models.SentimentNegative},
	}

	for _, tc := range cases {
		entry, err := feedback.Submit(context.Background(), SubmitFeedbackInput{
			UserID:  user.ID,
			Rating:  tc.rating,
			Message: "Responder was quick and professional",
		})
		require.NoError(t, err)
		assert.Equal(t, tc.sentiment, entry.Sentiment, "rating %d", tc.rating)
		assert.Equal(t, models.FeedbackPending, entry.Status)
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	s := newTestServices(t)
	feedback := newFeedbackService(t, s)
	user := createTestUser(t, s.db, "reviewer", models.RoleUser)

	_, err := feedback.Submit(context.Background(), SubmitFeedbackInput{UserID: user.ID, Rating: 3})
	require.Error(t, err)

	_, err = feedback.Submit(context.Background(), SubmitFeedbackInput{UserID: user.ID, Rating: 6, Message: "x"})
	require.Error(t, err)

	_, err = feedback.Submit(context.Background(), SubmitFeedbackInput{UserID: user.ID, Rating: 0, Message: "x"})
	require.Error(t, err)
}

func TestFeedbackReplyAndStatus(t *testing.T) {
	s := newTestServices(t)
	feedback := newFeedbackService(t, s)
	user := createTestUser(t, s.db, "reviewer", models.RoleUser)

	entry, err := feedback.Submit(context.Background(), SubmitFeedbackInput{
		UserID: user.ID, Rating: 2, Message: "Waited a long time for help",
	})
	require.NoError(t, err)

	_, err = feedback.Reply(context.Background(), entry.ID, "")
	require.Error(t, err)

	replied, err := feedback.Reply(context.Background(), entry.ID, "We are adding responders in your area")
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackReplied, replied.Status)

	var reloaded models.Feedback
	require.NoError(t, s.db.First(&reloaded, "id = ?", entry.ID).Error)
	assert.Equal(t, "We are adding responders in your area", reloaded.Reply)
	assert.NotNil(t, reloaded.RepliedAt)

	require.NoError(t, feedback.SetStatus(context.Background(), entry.ID, models.FeedbackResolved))
	require.ErrorIs(t, feedback.SetStatus(context.Background(), "missing", models.FeedbackResolved), apperrors.ErrNotFound)
	require.Error(t, feedback.SetStatus(context.Background(), entry.ID, "archived"))
}

func TestFeedbackListing(t *testing.T) {
	s := newTestServices(t)
	feedback := newFeedbackService(t, s)
	alice := createTestUser(t, s.db, "alice", models.RoleUser)
	bob := createTestUser(t, s.db, "bob", models.RoleUser)

	_, err := feedback.Submit(context.Background(), SubmitFeedbackInput{UserID: alice.ID, Rating: 5, Message: "Great"})
	require.NoError(t, err)
	_, err = feedback.Submit(context.Background(), SubmitFeedbackInput{UserID: bob.ID, Rating: 1, Message: "Poor"})
	require.NoError(t, err)

	mine, err := feedback.ListForUser(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.ID, mine[0].UserID)

	all, err := feedback.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := feedback.List(context.Background(), models.FeedbackPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
