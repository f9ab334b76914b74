package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

var t0 = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func msg(id, conv string, role model.Role, at time.Time) *model.Message {
	return &model.Message{ID: id, ConversationID: conv, OwnerID: "u1", Role: role, CreatedAt: at, UpdatedAt: at}
}

func TestMessagesOrderedNewestFirstThenRole(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Messages().Insert(ctx,
		msg("a1", "c", model.RoleAssistant, t0),
		msg("u1", "c", model.RoleUser, t0),
		msg("a2", "c", model.RoleAssistant, t0.Add(time.Minute)),
		msg("u2", "c", model.RoleUser, t0.Add(time.Minute)),
		msg("x", "other", model.RoleUser, t0),
	))

	got, err := s.Messages().ListByConversation(ctx, "c", 0, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, m := range got {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a2", "u2", "a1", "u1"}, ids)

	got, err = s.Messages().ListByConversation(ctx, "c", 3, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Messages().ListByConversation(ctx, "c", 10, 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestInsertStopsAtDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Messages().Insert(ctx, msg("b", "c", model.RoleAssistant, t0)))

	err := s.Messages().Insert(ctx, msg("a", "c", model.RoleUser, t0), msg("b", "c", model.RoleAssistant, t0))
	assert.ErrorIs(t, err, store.ErrDuplicate)

	n, err := s.Messages().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "messages before the duplicate are kept")
}

func TestTouchKeepsCreatedAtAndSubject(t *testing.T) {
	ctx := context.Background()
	s := New()
	conv := model.NewConversation("T1_abc", "first", "u1", t0)

	stored, created, err := s.Conversations().Touch(ctx, conv, t0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, t0, stored.CreatedAt)

	later := t0.Add(time.Hour)
	stored, created, err = s.Conversations().Touch(ctx, model.NewConversation("T1_abc", "second", "u1", later), later)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, t0, stored.CreatedAt)
	assert.Equal(t, later, stored.UpdatedAt)
	assert.Equal(t, "first", stored.Subject)
}

func TestTouchNeverMovesUpdatedAtBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	later := t0.Add(time.Hour)

	_, _, err := s.Conversations().Touch(ctx, model.NewConversation("T1_abc", "first", "u1", later), later)
	require.NoError(t, err)

	stored, created, err := s.Conversations().Touch(ctx, model.NewConversation("T1_abc", "late", "u1", t0), t0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, later, stored.UpdatedAt)

	conv, err := s.Conversations().Get(ctx, "T1_abc")
	require.NoError(t, err)
	assert.Equal(t, later, conv.UpdatedAt)
}

func TestClaimBilling(t *testing.T) {
	ctx := context.Background()
	s := New()
	msg := &model.Message{ID: "m1", ConversationID: "T1_abc", OwnerID: "u1", Role: model.RoleAssistant, CreatedAt: t0}
	require.NoError(t, s.Messages().Insert(ctx, msg))

	claimed, err := s.Messages().ClaimBilling(ctx, "m1", model.FrequencyDaily)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.Messages().ClaimBilling(ctx, "m1", model.FrequencyDaily)
	require.NoError(t, err)
	assert.False(t, claimed, "a claim is taken once")

	require.NoError(t, s.Messages().ReleaseBilling(ctx, "m1", model.FrequencyDaily))
	claimed, err = s.Messages().ClaimBilling(ctx, "m1", model.FrequencyDaily)
	require.NoError(t, err)
	assert.True(t, claimed, "a released claim can be taken again")

	_, err = s.Messages().ClaimBilling(ctx, "missing", model.FrequencyDaily)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFeedbackUpsertKeepsRating(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Feedback().SetRating(ctx, "m1", 4)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Feedback().Upsert(ctx, &model.Feedback{MessageID: "m1", IsLike: true, Rating: model.Unrated, CreatedAt: t0})
	require.NoError(t, err)
	_, err = s.Feedback().SetRating(ctx, "m1", 4)
	require.NoError(t, err)

	fb, err := s.Feedback().Upsert(ctx, &model.Feedback{MessageID: "m1", IsLike: false, Rating: model.Unrated, CreatedAt: t0})
	require.NoError(t, err)
	assert.False(t, fb.IsLike)
	assert.Equal(t, 4, fb.Rating)

	likes, err := s.Feedback().CountByLike(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, likes)
}

func TestBillingQueryRange(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, k := range []model.BucketKey{
		{Frequency: model.FrequencyDaily, DateKey: "14-03-2024", SortKey: "20240314", TenantID: "T1"},
		{Frequency: model.FrequencyDaily, DateKey: "15-03-2024", SortKey: "20240315", TenantID: "T2"},
		{Frequency: model.FrequencyDaily, DateKey: "15-03-2024", SortKey: "20240315", TenantID: "T1"},
		{Frequency: model.FrequencyMonthly, DateKey: "03-2024", SortKey: "202403", TenantID: "T1"},
	} {
		require.NoError(t, s.Billing().Increment(ctx, k, 10, 5, 0.01))
	}
	require.NoError(t, s.Billing().Increment(ctx,
		model.BucketKey{Frequency: model.FrequencyDaily, DateKey: "15-03-2024", SortKey: "20240315", TenantID: "T1"}, 10, 5, 0.01))

	got, total, err := s.Billing().Query(ctx, store.BucketFilter{Frequency: model.FrequencyDaily, From: "20240315"}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "T1", got[0].TenantID)
	assert.EqualValues(t, 20, got[0].InputTokens)
	assert.Equal(t, "T2", got[1].TenantID)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close(ctx))

	assert.ErrorIs(t, s.Ping(ctx), store.ErrUnavailable)
	_, err := s.Conversations().Get(ctx, "x")
	assert.ErrorIs(t, err, store.ErrUnavailable)
	_, err = s.Messages().Count(ctx)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
