package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store/memory"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

type testServices struct {
	store         store.Store
	conversations *ConversationService
	messages      *MessageService
	feedback      *FeedbackService
	billing       *BillingService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	return newTestServicesWithStore(t, memory.New())
}

func newTestServicesWithStore(t *testing.T, st store.Store) *testServices {
	t.Helper()
	log := logger.Nop()

	conversations := NewConversationService(st, log)
	billing := NewBillingService(st, log)
	return &testServices{
		store:         st,
		conversations: conversations,
		messages:      NewMessageService(st, conversations, billing, log),
		feedback:      NewFeedbackService(st, log),
		billing:       billing,
	}
}

// pair builds a user/assistant exchange with ids derived from the timestamp.
func pair(conversationID, ownerID, question, answer string, ts time.Time, in, out int) *model.PairWrite {
	return &model.PairWrite{
		ConversationID: conversationID,
		First:          model.MessageInput{OwnerID: ownerID, Role: model.RoleUser, Content: question, Summary: question},
		Second:         model.MessageInput{OwnerID: ownerID, Role: model.RoleAssistant, Content: answer, Summary: answer},
		InputTokens:    in,
		OutputTokens:   out,
		Timestamp:      ts,
	}
}

func postPair(t *testing.T, svc *testServices, p *model.PairWrite) *PairResult {
	t.Helper()
	res, err := svc.messages.PostPair(context.Background(), p)
	require.NoError(t, err)
	return res
}

var baseTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
