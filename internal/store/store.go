// Package store defines the persistence contracts of the chat ledger. The
// mongostore subpackage is the production implementation; memory backs tests and
// local development.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when the store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrDuplicate is returned when an insert collides with an existing id.
	ErrDuplicate = errors.New("duplicate id")
)

// ConversationStore persists conversation metadata.
type ConversationStore interface {
	// Create inserts conv unless a conversation with the same id exists.
	// It reports whether a document was inserted.
	Create(ctx context.Context, conv *model.Conversation) (bool, error)

	// Touch atomically raises updated_at of conv.ID to now, inserting conv
	// when it does not exist yet. updated_at never moves backwards. It
	// returns the stored conversation and whether this call created it.
	Touch(ctx context.Context, conv *model.Conversation, now time.Time) (*model.Conversation, bool, error)

	// UpdateSubject overwrites the subject. Missing ids are not an error.
	UpdateSubject(ctx context.Context, id, subject string) error

	Get(ctx context.Context, id string) (*model.Conversation, error)
	Delete(ctx context.Context, id string) error

	// ListByOwner returns conversations sorted by updated_at descending
	// together with the owner's total count.
	ListByOwner(ctx context.Context, ownerID string, skip, limit int) ([]model.Conversation, int64, error)
}

// MessageStore persists chat turns.
type MessageStore interface {
	// Insert stores msgs in order. It returns ErrDuplicate when the first
	// message id already exists.
	Insert(ctx context.Context, msgs ...*model.Message) error

	Get(ctx context.Context, messageID string) (*model.Message, error)

	// ClaimBilling atomically records that messageID is being billed to the
	// f bucket. It reports false when the claim already exists.
	ClaimBilling(ctx context.Context, messageID string, f model.Frequency) (bool, error)

	// ReleaseBilling drops a claim whose bucket increment failed.
	ReleaseBilling(ctx context.Context, messageID string, f model.Frequency) error

	// Siblings returns every message of a conversation created at ts.
	Siblings(ctx context.Context, conversationID string, ts time.Time) ([]model.Message, error)

	// ListByConversation sorts by created_at descending, then role ascending.
	ListByConversation(ctx context.Context, conversationID string, skip, limit int) ([]model.Message, error)

	CountByConversation(ctx context.Context, conversationID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int64, error)

	// MonthlyUsage sums an owner's tokens per calendar month, oldest first.
	MonthlyUsage(ctx context.Context, ownerID string) ([]model.MonthlyUsage, error)
}

// FeedbackStore persists feedback, one document per message id.
type FeedbackStore interface {
	// Upsert writes fb keyed by message id. The rating is only set when the
	// document is created.
	Upsert(ctx context.Context, fb *model.Feedback) (*model.Feedback, error)

	// SetRating updates the rating in place, or returns ErrNotFound.
	SetRating(ctx context.Context, messageID string, rating int) (*model.Feedback, error)

	// List sorts by created_at descending.
	List(ctx context.Context, isLike bool, skip, limit int) ([]model.Feedback, int64, error)

	CountByLike(ctx context.Context, isLike bool) (int64, error)
}

// BucketFilter selects billing buckets by frequency and sort-key range.
type BucketFilter struct {
	Frequency model.Frequency
	From      string
	To        string
}

// BillingStore persists billing rollups.
type BillingStore interface {
	// Increment atomically adds to the bucket identified by key, creating
	// it when missing.
	Increment(ctx context.Context, key model.BucketKey, inputTokens, outputTokens int, cost float64) error

	// Query sorts by sort key ascending then tenant.
	Query(ctx context.Context, filter BucketFilter, skip, limit int) ([]model.BillingBucket, int64, error)
}

// Store groups the ledger collections behind one connection.
type Store interface {
	Conversations() ConversationStore
	Messages() MessageStore
	Feedback() FeedbackStore
	Billing() BillingStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
