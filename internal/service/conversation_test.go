package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store/memory"
)

func TestCreateConversationIsIdempotent(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	first, created, err := svc.conversations.Create(ctx, &model.CreateConversationRequest{ID: "T1_abc", Subject: "Leave", OwnerID: "u1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "T1", first.TenantID)

	second, created, err := svc.conversations.Create(ctx, &model.CreateConversationRequest{ID: "T1_abc", Subject: "Other", OwnerID: "u1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Leave", second.Subject)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	page, err := svc.conversations.List(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Metadata.Total)
}

func TestCreateConversationValidation(t *testing.T) {
	svc := newTestServices(t)

	_, _, err := svc.conversations.Create(context.Background(), &model.CreateConversationRequest{ID: "T1_abc"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTouchOrCreate(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	conv, err := svc.conversations.TouchOrCreate(ctx, "T1_abc", "first subject", "u1", baseTime)
	require.NoError(t, err)
	assert.True(t, conv.CreatedAt.Equal(baseTime))

	later := baseTime.Add(time.Hour)
	conv, err = svc.conversations.TouchOrCreate(ctx, "T1_abc", "second subject", "u1", later)
	require.NoError(t, err)
	assert.Equal(t, "first subject", conv.Subject)
	assert.True(t, conv.CreatedAt.Equal(baseTime))
	assert.True(t, conv.UpdatedAt.Equal(later))
}

func TestListConversations(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.conversations.TouchOrCreate(ctx, fmt.Sprintf("T1_c%02d", i), "s", "u1", baseTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	_, err := svc.conversations.TouchOrCreate(ctx, "T1_other", "s", "u2", baseTime)
	require.NoError(t, err)

	page, err := svc.conversations.List(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Conversations, 10)
	assert.Equal(t, int64(25), page.Metadata.Total)
	assert.Equal(t, 3, page.Metadata.TotalPages)
	assert.Equal(t, 1, page.Metadata.PageNumber)
	assert.Equal(t, "T1_c24", page.Conversations[0].ID)

	last, err := svc.conversations.List(ctx, "u1", 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Conversations, 5)
	assert.Equal(t, "T1_c00", last.Conversations[4].ID)
}

func TestListConversationsEmptyOwner(t *testing.T) {
	svc := newTestServices(t)

	page, err := svc.conversations.List(context.Background(), "nobody", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Conversations)
	assert.NotNil(t, page.Conversations)
	assert.Equal(t, int64(0), page.Metadata.Total)
	assert.Equal(t, 0, page.Metadata.TotalPages)
}

func TestUpdateSubject(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	_, err := svc.conversations.TouchOrCreate(ctx, "T1_abc", "old", "u1", baseTime)
	require.NoError(t, err)

	require.NoError(t, svc.conversations.UpdateSubject(ctx, "T1_abc", &model.UpdateConversationRequest{Subject: "new"}))
	conv, err := svc.conversations.Get(ctx, "T1_abc")
	require.NoError(t, err)
	assert.Equal(t, "new", conv.Subject)

	assert.NoError(t, svc.conversations.UpdateSubject(ctx, "missing", &model.UpdateConversationRequest{Subject: "x"}))
}

func TestDeleteConversationCascades(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	postPair(t, svc, pair("T1_abc", "u1", "Hi", "Hello", baseTime, 10, 5))
	postPair(t, svc, pair("T1_keep", "u1", "Hi", "Hello", baseTime.Add(time.Second), 10, 5))

	require.NoError(t, svc.conversations.Delete(ctx, "T1_abc"))

	_, err := svc.conversations.Get(ctx, "T1_abc")
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := svc.store.Messages().CountByConversation(ctx, "T1_abc")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.store.Messages().CountByConversation(ctx, "T1_keep")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDeleteMissingConversation(t *testing.T) {
	svc := newTestServices(t)

	err := svc.conversations.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type failingDeleteStore struct {
	*memory.Store
	err error
}

func (s failingDeleteStore) Conversations() store.ConversationStore {
	return failingDeleteConversations{ConversationStore: s.Store.Conversations(), err: s.err}
}

type failingDeleteConversations struct {
	store.ConversationStore
	err error
}

func (c failingDeleteConversations) Delete(ctx context.Context, id string) error {
	return c.err
}

func TestDeleteConversationPartialFailure(t *testing.T) {
	st := failingDeleteStore{Store: memory.New(), err: errors.New("primary stepped down")}
	svc := newTestServicesWithStore(t, st)
	ctx := context.Background()

	postPair(t, svc, pair("T1_abc", "u1", "Hi", "Hello", baseTime, 10, 5))

	err := svc.conversations.Delete(ctx, "T1_abc")
	assert.ErrorIs(t, err, ErrPartialDelete)

	n, err := st.Messages().CountByConversation(ctx, "T1_abc")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConversationStoreUnavailable(t *testing.T) {
	st := memory.New()
	svc := newTestServicesWithStore(t, st)
	require.NoError(t, st.Close(context.Background()))

	_, err := svc.conversations.List(context.Background(), "u1", 1, 10)
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
