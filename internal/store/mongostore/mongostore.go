// Package mongostore implements the ledger store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// Collection names. Field names inside them are shared with existing
// deployments and must not change.
const (
	ConversationsCollection = "conversations"
	MessagesCollection      = "messages"
	FeedbackCollection      = "feedback"
	BillingCollection       = "billing"
)

// Config holds MongoDB connection configuration.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store wraps a MongoDB client and the ledger collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logger.Logger

	conversations *mongo.Collection
	messages      *mongo.Collection
	feedback      *mongo.Collection
	billing       *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect establishes a connection to MongoDB and ensures the ledger indexes.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", translate(err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", translate(err))
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:        client,
		db:            db,
		logger:        log,
		conversations: db.Collection(ConversationsCollection),
		messages:      db.Collection(MessagesCollection),
		feedback:      db.Collection(FeedbackCollection),
		billing:       db.Collection(BillingCollection),
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info("connected to MongoDB", zap.String("database", cfg.Database))
	return s, nil
}

// EnsureIndexes creates the unique keys the ledger relies on for idempotent
// writes, plus the indexes backing each sort order.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for coll, models := range indexModels() {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, translate(err))
		}
	}
	return nil
}

func indexModels() map[string][]mongo.IndexModel {
	unique := options.Index().SetUnique(true)

	return map[string][]mongo.IndexModel{
		ConversationsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "message_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "role", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		FeedbackCollection: {
			{Keys: bson.D{{Key: "message_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "is_like", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		BillingCollection: {
			{Keys: bson.D{{Key: "frequency", Value: 1}, {Key: "date_key", Value: 1}, {Key: "tenant_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "frequency", Value: 1}, {Key: "sort_key", Value: 1}}},
		},
	}
}

func (s *Store) Conversations() store.ConversationStore { return &conversations{coll: s.conversations} }
func (s *Store) Messages() store.MessageStore           { return &messages{coll: s.messages} }
func (s *Store) Feedback() store.FeedbackStore          { return &feedback{coll: s.feedback} }
func (s *Store) Billing() store.BillingStore            { return &billing{coll: s.billing} }

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return translate(err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// translate maps driver errors onto the store sentinels while keeping the
// driver detail for server-side logs.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	case mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

func findPage(skip, limit int) *options.FindOptions {
	opts := options.Find()
	if skip > 0 {
		opts.SetSkip(int64(skip))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}
