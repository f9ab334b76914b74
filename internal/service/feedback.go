package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/metrics"
)

// FeedbackService handles likes, dislikes and ratings on messages.
type FeedbackService struct {
	store  store.Store
	logger *logger.Logger
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(st store.Store, log *logger.Logger) *FeedbackService {
	return &FeedbackService{
		store:  st,
		logger: log,
	}
}

// PostFeedback records a like or dislike on a message. The feedback keeps a
// copy of the question and answer of the exchange the message belongs to.
// Posting again for the same message updates the like flag and keeps any
// rating already given.
func (s *FeedbackService) PostFeedback(ctx context.Context, messageID string, isLike bool) (*model.Feedback, error) {
	msg, err := s.store.Messages().Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	conv, err := s.store.Conversations().Get(ctx, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	siblings, err := s.store.Messages().Siblings(ctx, msg.ConversationID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}

	fb := &model.Feedback{
		MessageID:      messageID,
		IsLike:         isLike,
		Rating:         model.Unrated,
		CreatedAt:      model.Now(),
		ConversationID: conv.ID,
		OwnerID:        conv.OwnerID,
	}
	for _, m := range siblings {
		switch m.Role {
		case model.RoleUser:
			fb.UserMessage = m.Content
		case model.RoleAssistant:
			fb.AIMessage = m.Content
		}
	}

	stored, err := s.store.Feedback().Upsert(ctx, fb)
	if err != nil {
		return nil, fmt.Errorf("failed to store feedback: %w", err)
	}

	kind := "dislike"
	if isLike {
		kind = "like"
	}
	metrics.FeedbackTotal.WithLabelValues(kind).Inc()
	return stored, nil
}

// Message returns the message feedback attaches to.
func (s *FeedbackService) Message(ctx context.Context, messageID string) (*model.Message, error) {
	msg, err := s.store.Messages().Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// PostRating sets the rating of existing feedback.
func (s *FeedbackService) PostRating(ctx context.Context, messageID string, rating int) (*model.Feedback, error) {
	fb, err := s.store.Feedback().SetRating(ctx, messageID, rating)
	if err != nil {
		return nil, fmt.Errorf("failed to rate message: %w", err)
	}

	metrics.FeedbackTotal.WithLabelValues("rating").Inc()
	return fb, nil
}

// List returns one page of likes or dislikes, newest first.
func (s *FeedbackService) List(ctx context.Context, isLike bool, pageNumber, pageSize int) (*model.FeedbackPage, error) {
	meta := pagination.New(0, pageNumber, pageSize)

	items, total, err := s.store.Feedback().List(ctx, isLike, meta.Skip(), meta.Limit())
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	return &model.FeedbackPage{
		Feedbacks: items,
		Metadata:  pagination.New(total, meta.PageNumber, meta.PageSize),
	}, nil
}

// Summary counts exchanges and feedback. Exchanges are counted as half the
// stored messages.
func (s *FeedbackService) Summary(ctx context.Context) (*model.FeedbackSummary, error) {
	messages, err := s.store.Messages().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if messages%2 != 0 {
		s.logger.Warn("odd message count, ledger has an unpaired message",
			zap.Int64("messages", messages),
		)
	}

	positive, err := s.store.Feedback().CountByLike(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	negative, err := s.store.Feedback().CountByLike(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	return &model.FeedbackSummary{
		TotalMessages: messages / 2,
		Positive:      positive,
		Negative:      negative,
	}, nil
}
