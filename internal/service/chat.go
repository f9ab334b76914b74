package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/llm"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/metrics"
)

// Responder produces answers, safety verdicts and titles for questions.
type Responder interface {
	GenerateResponse(ctx context.Context, query string, history []model.Message) (*llm.Answer, error)
	CheckValidation(ctx context.Context, query string) (*llm.Verdict, error)
	GenerateTitle(ctx context.Context, query string) (string, error)
}

// PairPublisher hands a paired write to the persistence queue.
type PairPublisher interface {
	PublishPair(ctx context.Context, pair *model.PairWrite) error
}

// ChatOptions toggles the optional steps of a chat exchange.
type ChatOptions struct {
	Guardrail      bool
	GenerateTitles bool
	ContextWindow  int
}

// ChatService answers questions and records each exchange in the ledger.
type ChatService struct {
	messages  *MessageService
	responder Responder
	publisher PairPublisher
	opts      ChatOptions
	logger    *logger.Logger
}

// NewChatService creates a chat service. With a nil publisher exchanges are
// written synchronously before the reply is returned.
func NewChatService(messages *MessageService, responder Responder, publisher PairPublisher, opts ChatOptions, log *logger.Logger) *ChatService {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	return &ChatService{
		messages:  messages,
		responder: responder,
		publisher: publisher,
		opts:      opts,
		logger:    log,
	}
}

// Complete answers req and records the question and answer as a pair.
func (s *ChatService) Complete(ctx context.Context, req *model.ChatRequest) (resp *model.ChatResponse, err error) {
	ctx, span := tracer.Start(ctx, "ChatService.Complete")
	defer func() { endSpan(span, err) }()

	if req.Question == "" || req.ConversationID == "" || req.UserID == "" {
		return nil, fmt.Errorf("%w: question, conversation_id and user_id are required", ErrInvalidArgument)
	}
	span.SetAttributes(
		attribute.String("conversation.id", req.ConversationID),
		attribute.Bool("conversation.new", req.IsNew),
	)

	log := s.logger.With(
		zap.String("conversation_id", req.ConversationID),
		zap.String("tenant_id", model.TenantID(req.ConversationID)),
		zap.String("user_id", req.UserID),
	)

	answer, err := s.answer(ctx, req, log)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().UTC()
	now := stamp.Truncate(time.Millisecond)
	subject := ""
	if req.IsNew {
		subject = s.subject(ctx, req.Question, log)
	}

	summary := answer.Summary
	if summary == "" {
		summary = answer.Text
	}

	pair := &model.PairWrite{
		ConversationID: req.ConversationID,
		Subject:        subject,
		First: model.MessageInput{
			OwnerID: req.UserID,
			ID:      model.PairMessageID(req.UserID, stamp, model.RoleUser),
			Role:    model.RoleUser,
			Content: req.Question,
			Summary: req.Question,
		},
		Second: model.MessageInput{
			OwnerID: req.UserID,
			ID:      model.PairMessageID(req.UserID, stamp, model.RoleAssistant),
			Role:    model.RoleAssistant,
			Content: answer.Text,
			Summary: summary,
		},
		InputTokens:  answer.InputTokens,
		OutputTokens: answer.OutputTokens,
		Timestamp:    now,
	}

	if err := s.persist(ctx, pair, log); err != nil {
		return nil, err
	}

	resp = &model.ChatResponse{
		ConversationID: req.ConversationID,
		MessageID:      pair.Second.ID,
		Content:        answer.Text,
		Timestamp:      now,
		IsNew:          req.IsNew,
	}
	if req.IsNew {
		resp.UserID = req.UserID
		resp.Subject = subject
		resp.CreatedAt = &now
		resp.UpdatedAt = &now
		resp.Reply = &model.Reply{ID: pair.Second.ID, Content: answer.Text, Timestamp: now}
	}
	return resp, nil
}

// answer runs the guardrail when enabled, then the model. A refused
// question is answered with the refusal reason at no token cost.
func (s *ChatService) answer(ctx context.Context, req *model.ChatRequest, log *logger.Logger) (*llm.Answer, error) {
	if s.opts.Guardrail {
		verdict, err := s.responder.CheckValidation(ctx, req.Question)
		switch {
		case err != nil:
			log.Warn("guardrail check failed, answering anyway", zap.Error(err))
		case !verdict.IsSafe:
			metrics.GuardrailRejections.Inc()
			log.Info("question refused", zap.String("reason", verdict.Reasoning))
			return &llm.Answer{Text: verdict.Reasoning}, nil
		}
	}

	var history []model.Message
	if !req.IsNew {
		var err error
		history, err = s.messages.RecentContext(ctx, req.ConversationID, s.opts.ContextWindow)
		if err != nil {
			log.Warn("failed to load conversation context", zap.Error(err))
		}
	}

	answer, err := s.responder.GenerateResponse(ctx, req.Question, history)
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}
	return answer, nil
}

func (s *ChatService) subject(ctx context.Context, question string, log *logger.Logger) string {
	if !s.opts.GenerateTitles {
		return question
	}
	title, err := s.responder.GenerateTitle(ctx, question)
	if err != nil {
		log.Warn("failed to generate title, using question", zap.Error(err))
		return question
	}
	return title
}

// persist queues the pair when a publisher is configured and falls back to
// a direct write when publishing fails.
func (s *ChatService) persist(ctx context.Context, pair *model.PairWrite, log *logger.Logger) error {
	if s.publisher != nil {
		err := s.publisher.PublishPair(ctx, pair)
		if err == nil {
			return nil
		}
		metrics.PersistQueueTotal.WithLabelValues("publish_failed").Inc()
		log.Error("failed to queue message pair, writing directly",
			zap.String("conversation_id", pair.ConversationID),
			zap.Error(err),
		)
	}

	if _, err := s.messages.PostPair(ctx, pair); err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return nil
}
