package service

import (
	"context"
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

// ConversationService handles conversation operations.
type ConversationService struct {
	store  store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		logger: log,
	}
}

// Create inserts a conversation unless one with the same id exists. It
// returns the stored conversation and whether this call created it.
func (s *ConversationService) Create(ctx context.Context, req *model.CreateConversationRequest) (conv *model.Conversation, created bool, err error) {
	ctx, span := tracer.Start(ctx, "ConversationService.Create")
	defer func() { endSpan(span, err) }()

	if req.ID == "" || req.OwnerID == "" {
		return nil, false, fmt.Errorf("%w: id and owner_id are required", ErrInvalidArgument)
	}
	span.SetAttributes(attribute.String("conversation.id", req.ID))

	conv = model.NewConversation(req.ID, req.Subject, req.OwnerID, model.Now())
	created, err = s.store.Conversations().Create(ctx, conv)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	if !created {
		conv, err = s.store.Conversations().Get(ctx, req.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load conversation: %w", err)
		}
		return conv, false, nil
	}

	metrics.ConversationsTotal.WithLabelValues(conv.TenantID).Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("tenant_id", conv.TenantID),
		zap.String("owner_id", conv.OwnerID),
	)
	return conv, true, nil
}

// TouchOrCreate raises updated_at to now, creating the conversation with
// subject when it does not exist yet. An older now leaves updated_at as is.
func (s *ConversationService) TouchOrCreate(ctx context.Context, id, subject, ownerID string, now time.Time) (*model.Conversation, error) {
	conv, created, err := s.store.Conversations().Touch(ctx, model.NewConversation(id, subject, ownerID, now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	if created {
		metrics.ConversationsTotal.WithLabelValues(conv.TenantID).Inc()
	}
	return conv, nil
}

// UpdateSubject overwrites the subject of a conversation.
func (s *ConversationService) UpdateSubject(ctx context.Context, id string, req *model.UpdateConversationRequest) error {
	if err := s.store.Conversations().UpdateSubject(ctx, id, req.Subject); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.store.Conversations().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// Delete removes a conversation and every message in it. Messages go
// first so a conversation is never left behind without a way to reach them.
func (s *ConversationService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "ConversationService.Delete")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("conversation.id", id))

	if _, err = s.store.Conversations().Get(ctx, id); err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}

	deleted, err := s.store.Messages().DeleteByConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	if err = s.store.Conversations().Delete(ctx, id); err != nil {
		s.logger.Error("conversation left without messages",
			zap.String("conversation_id", id),
			zap.Int64("deleted_messages", deleted),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrPartialDelete, err)
	}

	s.logger.Info("conversation deleted",
		zap.String("conversation_id", id),
		zap.Int64("deleted_messages", deleted),
	)
	return nil
}

// List returns one page of an owner's conversations, most recently
// updated first.
func (s *ConversationService) List(ctx context.Context, ownerID string, pageNumber, pageSize int) (*model.ConversationsPage, error) {
	meta := pagination.New(0, pageNumber, pageSize)

	convs, total, err := s.store.Conversations().ListByOwner(ctx, ownerID, meta.Skip(), meta.Limit())
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return &model.ConversationsPage{
		Conversations: convs,
		Metadata:      pagination.New(total, meta.PageNumber, meta.PageSize),
	}, nil
}
