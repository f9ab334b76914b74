// Package memory is an in-process implementation of the ledger store. It
// keeps the same ordering and atomicity guarantees as the mongo store and
// backs the test suites and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

// Store is a mutex-guarded in-memory ledger.
type Store struct {
	mu sync.RWMutex

	conversations map[string]*model.Conversation
	messages      []*model.Message
	messageIndex  map[string]*model.Message
	feedback      map[string]*model.Feedback
	buckets       map[string]*model.BillingBucket

	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*model.Conversation),
		messageIndex:  make(map[string]*model.Message),
		feedback:      make(map[string]*model.Feedback),
		buckets:       make(map[string]*model.BillingBucket),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Conversations() store.ConversationStore { return conversations{s} }
func (s *Store) Messages() store.MessageStore           { return messages{s} }
func (s *Store) Feedback() store.FeedbackStore          { return feedback{s} }
func (s *Store) Billing() store.BillingStore            { return billing{s} }

// Ping fails once the store has been closed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrUnavailable
	}
	return ctx.Err()
}

// Close marks the store unavailable.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) check() error {
	if s.closed {
		return store.ErrUnavailable
	}
	return nil
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

type conversations struct{ s *Store }

func (c conversations) Create(ctx context.Context, conv *model.Conversation) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return false, err
	}

	if _, exists := c.s.conversations[conv.ID]; exists {
		return false, nil
	}
	stored := *conv
	c.s.conversations[conv.ID] = &stored
	return true, nil
}

func (c conversations) Touch(ctx context.Context, conv *model.Conversation, now time.Time) (*model.Conversation, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return nil, false, err
	}

	stored, exists := c.s.conversations[conv.ID]
	if !exists {
		created := *conv
		created.CreatedAt = now
		created.UpdatedAt = now
		c.s.conversations[conv.ID] = &created
		out := created
		return &out, true, nil
	}

	if now.After(stored.UpdatedAt) {
		stored.UpdatedAt = now
	}
	out := *stored
	return &out, false, nil
}

func (c conversations) UpdateSubject(ctx context.Context, id, subject string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return err
	}

	if conv, exists := c.s.conversations[id]; exists {
		conv.Subject = subject
	}
	return nil
}

func (c conversations) Get(ctx context.Context, id string) (*model.Conversation, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	if err := c.s.check(); err != nil {
		return nil, err
	}

	conv, exists := c.s.conversations[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := *conv
	return &out, nil
}

func (c conversations) Delete(ctx context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.check(); err != nil {
		return err
	}

	if _, exists := c.s.conversations[id]; !exists {
		return store.ErrNotFound
	}
	delete(c.s.conversations, id)
	return nil
}

func (c conversations) ListByOwner(ctx context.Context, ownerID string, skip, limit int) ([]model.Conversation, int64, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	if err := c.s.check(); err != nil {
		return nil, 0, err
	}

	var convs []model.Conversation
	for _, conv := range c.s.conversations {
		if conv.OwnerID == ownerID {
			convs = append(convs, *conv)
		}
	}

	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].ID < convs[j].ID
		}
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	return page(convs, skip, limit), int64(len(convs)), nil
}
