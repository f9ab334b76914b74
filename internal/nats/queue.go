package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/metrics"
)

const (
	// StreamName is the name of the ledger write stream.
	StreamName = "LEDGER"

	// SubjectPrefix is the prefix for all ledger subjects.
	SubjectPrefix = "ledger"

	// ConsumerName is the durable consumer that writes pairs to the store.
	ConsumerName = "ledger-writer"
)

// ErrRejected marks a handler error that retrying cannot fix. The message is
// terminated instead of redelivered.
var ErrRejected = errors.New("pair rejected")

// PairHandler stores one dequeued paired write.
type PairHandler func(ctx context.Context, pair *model.PairWrite) error

// Queue is an at-least-once work queue of paired writes. Consumers must be
// idempotent since a pair is redelivered until it is acknowledged.
type Queue struct {
	client *Client
	logger *logger.Logger
}

// NewQueue creates a new queue.
func NewQueue(client *Client, log *logger.Logger) *Queue {
	return &Queue{client: client, logger: log}
}

// EnsureStream ensures the ledger stream exists with proper configuration.
func (q *Queue) EnsureStream(ctx context.Context) error {
	_, err := q.client.JetStream().CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Duplicates:  2 * time.Minute,
		Description: "Paired chat writes waiting to be stored",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PairSubject returns the subject pairs of a tenant are published on.
func PairSubject(tenantID string) string {
	return fmt.Sprintf("%s.pairs.%s", SubjectPrefix, subjectToken(tenantID))
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// PublishPair enqueues a paired write. The assistant message id doubles as
// the JetStream message id, so a retried publish is dropped by the stream.
func (q *Queue) PublishPair(ctx context.Context, pair *model.PairWrite) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal pair: %w", err)
	}

	subject := PairSubject(model.TenantID(pair.ConversationID))
	if _, err := q.client.JetStream().Publish(ctx, subject, data, jetstream.WithMsgID(pair.Second.ID)); err != nil {
		return fmt.Errorf("failed to publish pair: %w", err)
	}

	metrics.PersistQueueTotal.WithLabelValues("published").Inc()
	return nil
}

// Consume starts delivering queued pairs to handler until the returned
// context is stopped.
func (q *Queue) Consume(ctx context.Context, handler PairHandler) (jetstream.ConsumeContext, error) {
	consumer, err := q.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		FilterSubject: SubjectPrefix + ".pairs.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    10,
		BackOff:       []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handle(ctx, msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	q.logger.Info("ledger consumer started", zap.String("consumer", ConsumerName))
	return cc, nil
}

// delivery is the part of jetstream.Msg the handler needs.
type delivery interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
	Term() error
}

func (q *Queue) handle(ctx context.Context, msg delivery, handler PairHandler) {
	var pair model.PairWrite
	if err := json.Unmarshal(msg.Data(), &pair); err != nil {
		metrics.PersistQueueTotal.WithLabelValues("malformed").Inc()
		q.logger.Error("dropping malformed pair",
			zap.String("subject", msg.Subject()),
			zap.Error(err),
		)
		if err := msg.Term(); err != nil {
			q.logger.Warn("failed to terminate message", zap.Error(err))
		}
		return
	}

	err := handler(ctx, &pair)
	if errors.Is(err, ErrRejected) {
		metrics.PersistQueueTotal.WithLabelValues("rejected").Inc()
		q.logger.Error("dropping rejected pair",
			zap.String("conversation_id", pair.ConversationID),
			zap.String("message_id", pair.Second.ID),
			zap.Error(err),
		)
		if err := msg.Term(); err != nil {
			q.logger.Warn("failed to terminate message", zap.Error(err))
		}
		return
	}
	if err != nil {
		metrics.PersistQueueTotal.WithLabelValues("failed").Inc()
		q.logger.Error("failed to store queued pair, will retry",
			zap.String("conversation_id", pair.ConversationID),
			zap.String("message_id", pair.Second.ID),
			zap.Error(err),
		)
		if err := msg.Nak(); err != nil {
			q.logger.Warn("failed to nak message", zap.Error(err))
		}
		return
	}

	metrics.PersistQueueTotal.WithLabelValues("stored").Inc()
	if err := msg.Ack(); err != nil {
		q.logger.Warn("failed to ack message", zap.Error(err))
	}
}

// RecordStats refreshes the stream and consumer gauges.
func (q *Queue) RecordStats(ctx context.Context) error {
	stream, err := q.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}
	metrics.NATSStreamMessages.WithLabelValues(StreamName).Set(float64(info.State.Msgs))

	consumer, err := stream.Consumer(ctx, ConsumerName)
	if err != nil {
		return fmt.Errorf("failed to get consumer: %w", err)
	}
	cinfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	metrics.NATSConsumerPending.WithLabelValues(StreamName, ConsumerName).Set(float64(cinfo.NumPending))
	return nil
}
