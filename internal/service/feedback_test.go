package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

func TestPostFeedbackSnapshotsExchange(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	res := postPair(t, svc, pair("T1_abc", "u1", "Hi", "Hello, how can I help?", baseTime, 10, 5))

	fb, err := svc.feedback.PostFeedback(ctx, res.Second.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Hi", fb.UserMessage)
	assert.Equal(t, "Hello, how can I help?", fb.AIMessage)
	assert.Equal(t, model.Unrated, fb.Rating)
	assert.Equal(t, "T1_abc", fb.ConversationID)
	assert.Equal(t, "u1", fb.OwnerID)
	assert.True(t, fb.IsLike)

	rated, err := svc.feedback.PostRating(ctx, res.Second.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, rated.Rating)

	page, err := svc.feedback.List(ctx, true, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Feedbacks, 1)
	assert.Equal(t, int64(1), page.Metadata.Total)
	assert.Equal(t, 5, page.Feedbacks[0].Rating)
}

func TestPostFeedbackTwiceKeepsOneRow(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	res := postPair(t, svc, pair("T1_abc", "u1", "Hi", "Hello", baseTime, 10, 5))

	_, err := svc.feedback.PostFeedback(ctx, res.Second.ID, true)
	require.NoError(t, err)
	_, err = svc.feedback.PostRating(ctx, res.Second.ID, 4)
	require.NoError(t, err)

	fb, err := svc.feedback.PostFeedback(ctx, res.Second.ID, false)
	require.NoError(t, err)
	assert.False(t, fb.IsLike)
	assert.Equal(t, 4, fb.Rating)

	summary, err := svc.feedback.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Positive)
	assert.Equal(t, int64(1), summary.Negative)
}

func TestPostFeedbackNotFound(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.feedback.PostFeedback(ctx, "missing", true)
	assert.ErrorIs(t, err, store.ErrNotFound)

	orphan := &model.Message{
		ID:             "orphan",
		ConversationID: "T1_gone",
		OwnerID:        "u1",
		Role:           model.RoleAssistant,
		CreatedAt:      baseTime,
	}
	require.NoError(t, svc.store.Messages().Insert(ctx, orphan))

	_, err = svc.feedback.PostFeedback(ctx, "orphan", true)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostRatingWithoutFeedback(t *testing.T) {
	svc := newTestServices(t)

	_, err := svc.feedback.PostRating(context.Background(), "m1", 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListFeedbackNewestFirst(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		res := postPair(t, svc, pair("T1_abc", "u1", "q", "a", baseTime.Add(time.Duration(i)*time.Second), 1, 1))
		_, err := svc.feedback.PostFeedback(ctx, res.Second.ID, true)
		require.NoError(t, err)
		ids = append(ids, res.Second.ID)
		time.Sleep(2 * time.Millisecond)
	}

	page, err := svc.feedback.List(ctx, true, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Feedbacks, 2)
	assert.Equal(t, ids[2], page.Feedbacks[0].MessageID)
	assert.Equal(t, ids[1], page.Feedbacks[1].MessageID)
	assert.Equal(t, 2, page.Metadata.TotalPages)

	dislikes, err := svc.feedback.List(ctx, false, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, dislikes.Feedbacks)
}

func TestFeedbackSummary(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	const pairs = 4
	var ids []string
	for i := 0; i < pairs; i++ {
		res := postPair(t, svc, pair("T1_abc", "u1", "q", "a", baseTime.Add(time.Duration(i)*time.Second), 1, 1))
		ids = append(ids, res.Second.ID)
	}
	for i, id := range ids[:3] {
		_, err := svc.feedback.PostFeedback(ctx, id, i != 0)
		require.NoError(t, err)
	}

	summary, err := svc.feedback.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.FeedbackSummary{TotalMessages: pairs, Positive: 2, Negative: 1}, summary)
}
