package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

type messages struct{ s *Store }

// Insert stops at the first duplicate id, keeping the messages before it,
// the same way an ordered bulk insert behaves.
func (m messages) Insert(ctx context.Context, msgs ...*model.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check(); err != nil {
		return err
	}

	for _, msg := range msgs {
		if _, exists := m.s.messageIndex[msg.ID]; exists {
			return store.ErrDuplicate
		}
		stored := *msg
		m.s.messages = append(m.s.messages, &stored)
		m.s.messageIndex[msg.ID] = &stored
	}
	return nil
}

func (m messages) Get(ctx context.Context, messageID string) (*model.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if err := m.s.check(); err != nil {
		return nil, err
	}

	msg, exists := m.s.messageIndex[messageID]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := *msg
	return &out, nil
}

func (m messages) ClaimBilling(ctx context.Context, messageID string, f model.Frequency) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check(); err != nil {
		return false, err
	}

	msg, exists := m.s.messageIndex[messageID]
	if !exists {
		return false, store.ErrNotFound
	}
	if msg.BilledTo(f) {
		return false, nil
	}
	msg.Billed = append(slices.Clone(msg.Billed), f)
	return true, nil
}

func (m messages) ReleaseBilling(ctx context.Context, messageID string, f model.Frequency) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check(); err != nil {
		return err
	}

	msg, exists := m.s.messageIndex[messageID]
	if !exists {
		return store.ErrNotFound
	}
	msg.Billed = slices.DeleteFunc(slices.Clone(msg.Billed), func(b model.Frequency) bool { return b == f })
	return nil
}

func (m messages) Siblings(ctx context.Context, conversationID string, ts time.Time) ([]model.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if err := m.s.check(); err != nil {
		return nil, err
	}

	var out []model.Message
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID && msg.CreatedAt.Equal(ts) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m messages) conversation(conversationID string) []model.Message {
	var out []model.Message
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Role < out[j].Role
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m messages) ListByConversation(ctx context.Context, conversationID string, skip, limit int) ([]model.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if err := m.s.check(); err != nil {
		return nil, err
	}

	return page(m.conversation(conversationID), skip, limit), nil
}

func (m messages) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if err := m.s.check(); err != nil {
		return 0, err
	}

	var n int64
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (m messages) Count(ctx context.Context) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if err := m.s.check(); err != nil {
		return 0, err
	}
	return int64(len(m.s.messages)), nil
}

func (m messages) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check(); err != nil {
		return 0, err
	}

	kept := m.s.messages[:0]
	var deleted int64
	for _, msg := range m.s.messages {
		if msg.ConversationID == conversationID {
			delete(m.s.messageIndex, msg.ID)
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	m.s.messages = kept
	return deleted, nil
}

func (m messages) MonthlyUsage(ctx context.Context, ownerID string) ([]model.MonthlyUsage, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if err := m.s.check(); err != nil {
		return nil, err
	}

	type yearMonth struct{ year, month int }
	groups := make(map[yearMonth]*model.MonthlyUsage)
	for _, msg := range m.s.messages {
		if msg.OwnerID != ownerID {
			continue
		}
		ts := msg.CreatedAt.UTC()
		key := yearMonth{ts.Year(), int(ts.Month())}
		usage, exists := groups[key]
		if !exists {
			usage = &model.MonthlyUsage{Year: key.year, Month: key.month}
			groups[key] = usage
		}
		usage.InputTokens += int64(msg.InputTokens)
		usage.OutputTokens += int64(msg.OutputTokens)
	}

	out := make([]model.MonthlyUsage, 0, len(groups))
	for _, usage := range groups {
		out = append(out, *usage)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}
