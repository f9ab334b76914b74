package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/metrics"
)

// DefaultContextWindow is how many recent messages RecentContext returns
// when the caller does not ask for a specific number.
const DefaultContextWindow = 6

// MessageService handles message operations.
type MessageService struct {
	store         store.Store
	conversations *ConversationService
	billing       *BillingService
	logger        *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(
	st store.Store,
	conversations *ConversationService,
	billing *BillingService,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		store:         st,
		conversations: conversations,
		billing:       billing,
		logger:        log,
	}
}

// PairResult is the outcome of a paired write.
type PairResult struct {
	Conversation *model.Conversation
	First        *model.Message
	Second       *model.Message
	// Replayed is set when both messages were already stored. Billing is
	// only applied to the buckets an earlier attempt did not reach.
	Replayed bool
}

// PostSingle appends one message to a conversation, creating the
// conversation when needed.
func (s *MessageService) PostSingle(ctx context.Context, req *model.PostMessageRequest) (*model.Message, error) {
	if req.ConversationID == "" || req.OwnerID == "" {
		return nil, fmt.Errorf("%w: conversation_id and owner_id are required", ErrInvalidArgument)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, req.Role)
	}

	now := model.Now()
	if _, err := s.conversations.TouchOrCreate(ctx, req.ConversationID, req.Content, req.OwnerID, now); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:             model.NewMessageID(),
		ConversationID: req.ConversationID,
		OwnerID:        req.OwnerID,
		Role:           req.Role,
		Content:        req.Content,
		Summary:        req.Summary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Messages().Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	metrics.MessagesTotal.WithLabelValues(model.TenantID(req.ConversationID), string(req.Role)).Inc()
	return msg, nil
}

// PostPair stores two messages sharing one timestamp, bumps the
// conversation and bills the tokens to the conversation's tenant. Token
// counts are attributed to the second message. Retrying a pair is safe: the
// stored messages are returned and only unbilled buckets are billed. An id
// already used by a different exchange fails with ErrConflict.
func (s *MessageService) PostPair(ctx context.Context, pair *model.PairWrite) (res *PairResult, err error) {
	ctx, span := tracer.Start(ctx, "MessageService.PostPair")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("conversation.id", pair.ConversationID))

	stamp := pair.Timestamp.UTC()
	if pair.Timestamp.IsZero() {
		stamp = time.Now().UTC()
	}
	now := stamp.Truncate(time.Millisecond)

	first := newPairMessage(pair.ConversationID, pair.First, stamp, now, 0, 0)
	second := newPairMessage(pair.ConversationID, pair.Second, stamp, now, pair.InputTokens, pair.OutputTokens)
	if err := validatePair(pair, first, second); err != nil {
		return nil, err
	}

	subject := pair.Subject
	if subject == "" {
		subject = pair.First.Content
	}

	conv, err := s.conversations.TouchOrCreate(ctx, pair.ConversationID, subject, pair.First.OwnerID, now)
	if err != nil {
		return nil, err
	}

	stored, inserted, err := s.insertPair(ctx, first, second)
	if err != nil {
		return nil, err
	}

	tenantID := model.TenantID(pair.ConversationID)
	if inserted {
		metrics.MessagesTotal.WithLabelValues(tenantID, string(first.Role)).Inc()
		metrics.MessagesTotal.WithLabelValues(tenantID, string(second.Role)).Inc()
	}

	billed, err := s.billing.BillPair(ctx, stored)
	if err != nil {
		return nil, err
	}

	if !inserted {
		metrics.PairReplaysTotal.Inc()
		s.logger.Info("message pair already stored",
			zap.String("conversation_id", pair.ConversationID),
			zap.String("message_id", second.ID),
			zap.Bool("billed", billed),
		)
		return s.storedPair(ctx, conv, first.ID, stored)
	}

	s.logger.Debug("message pair stored",
		zap.String("conversation_id", pair.ConversationID),
		zap.String("tenant_id", tenantID),
		zap.Int("input_tokens", pair.InputTokens),
		zap.Int("output_tokens", pair.OutputTokens),
	)

	return &PairResult{Conversation: conv, First: first, Second: stored}, nil
}

// insertPair stores the pair and returns the stored second message. inserted
// is false when an earlier attempt already stored it.
func (s *MessageService) insertPair(ctx context.Context, first, second *model.Message) (stored *model.Message, inserted bool, err error) {
	err = s.store.Messages().Insert(ctx, first, second)
	if err == nil {
		return second, true, nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		return nil, false, fmt.Errorf("failed to insert messages: %w", err)
	}

	if _, err := s.sameExchange(ctx, first); err != nil {
		return nil, false, err
	}

	stored, err = s.sameExchange(ctx, second)
	switch {
	case err == nil:
		return stored, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, err
	}

	// The first message landed on an earlier attempt.
	err = s.store.Messages().Insert(ctx, second)
	switch {
	case err == nil:
		return second, true, nil
	case errors.Is(err, store.ErrDuplicate):
		stored, err = s.sameExchange(ctx, second)
		if err != nil {
			return nil, false, err
		}
		return stored, false, nil
	}
	return nil, false, fmt.Errorf("failed to insert message: %w", err)
}

// sameExchange loads the stored copy of want and checks that it carries the
// same turn. A missing message is reported as store.ErrNotFound.
func (s *MessageService) sameExchange(ctx context.Context, want *model.Message) (*model.Message, error) {
	got, err := s.store.Messages().Get(ctx, want.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check message: %w", err)
	}
	if !got.SameExchange(want) {
		s.logger.Warn("message id already used by another exchange",
			zap.String("message_id", want.ID),
			zap.String("conversation_id", want.ConversationID),
			zap.String("stored_conversation_id", got.ConversationID),
		)
		return nil, fmt.Errorf("%w: message %s belongs to another exchange", ErrConflict, want.ID)
	}
	return got, nil
}

func (s *MessageService) storedPair(ctx context.Context, conv *model.Conversation, firstID string, second *model.Message) (*PairResult, error) {
	first, err := s.store.Messages().Get(ctx, firstID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &PairResult{Conversation: conv, First: first, Second: second, Replayed: true}, nil
}

// newPairMessage builds one half of a pair. Generated ids use stamp at full
// resolution; stored times use now.
func newPairMessage(conversationID string, in model.MessageInput, stamp, now time.Time, inputTokens, outputTokens int) *model.Message {
	id := in.ID
	if id == "" {
		id = model.PairMessageID(in.OwnerID, stamp, in.Role)
	}
	return &model.Message{
		ID:             id,
		ConversationID: conversationID,
		OwnerID:        in.OwnerID,
		Role:           in.Role,
		Content:        in.Content,
		Summary:        in.Summary,
		CreatedAt:      now,
		UpdatedAt:      now,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
	}
}

func validatePair(pair *model.PairWrite, first, second *model.Message) error {
	switch {
	case pair.ConversationID == "":
		return fmt.Errorf("%w: conversation_id is required", ErrInvalidArgument)
	case first.OwnerID == "" || second.OwnerID == "":
		return fmt.Errorf("%w: owner_id is required", ErrInvalidArgument)
	case !first.Role.Valid() || !second.Role.Valid():
		return fmt.Errorf("%w: unknown role", ErrInvalidArgument)
	case first.ID == second.ID:
		return fmt.Errorf("%w: paired messages need distinct ids", ErrInvalidArgument)
	case pair.InputTokens < 0 || pair.OutputTokens < 0:
		return fmt.Errorf("%w: token counts must not be negative", ErrInvalidArgument)
	}
	return nil
}

// GetPage returns one page of a conversation, newest first. A nil page
// number, or one past the end, selects the last page.
func (s *MessageService) GetPage(ctx context.Context, conversationID string, pageNumber *int, pageSize int) (*model.MessagesPage, error) {
	total, err := s.store.Messages().CountByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	meta := pagination.Latest(total, pageNumber, pageSize)
	msgs, err := s.store.Messages().ListByConversation(ctx, conversationID, meta.Skip(), meta.Limit())
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return &model.MessagesPage{Messages: msgs, Metadata: meta}, nil
}

// RecentContext returns the latest messages of a conversation, newest first.
func (s *MessageService) RecentContext(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = DefaultContextWindow
	}

	msgs, err := s.store.Messages().ListByConversation(ctx, conversationID, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
