package memory

import (
	"context"
	"sort"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

type feedback struct{ s *Store }

func (f feedback) Upsert(ctx context.Context, fb *model.Feedback) (*model.Feedback, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.check(); err != nil {
		return nil, err
	}

	stored, exists := f.s.feedback[fb.MessageID]
	if !exists {
		created := *fb
		f.s.feedback[fb.MessageID] = &created
		out := created
		return &out, nil
	}

	stored.IsLike = fb.IsLike
	stored.ConversationID = fb.ConversationID
	stored.OwnerID = fb.OwnerID
	stored.UserMessage = fb.UserMessage
	stored.AIMessage = fb.AIMessage
	out := *stored
	return &out, nil
}

func (f feedback) SetRating(ctx context.Context, messageID string, rating int) (*model.Feedback, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.check(); err != nil {
		return nil, err
	}

	stored, exists := f.s.feedback[messageID]
	if !exists {
		return nil, store.ErrNotFound
	}
	stored.Rating = rating
	out := *stored
	return &out, nil
}

func (f feedback) List(ctx context.Context, isLike bool, skip, limit int) ([]model.Feedback, int64, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	if err := f.s.check(); err != nil {
		return nil, 0, err
	}

	var out []model.Feedback
	for _, fb := range f.s.feedback {
		if fb.IsLike == isLike {
			out = append(out, *fb)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, skip, limit), int64(len(out)), nil
}

func (f feedback) CountByLike(ctx context.Context, isLike bool) (int64, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	if err := f.s.check(); err != nil {
		return 0, err
	}

	var n int64
	for _, fb := range f.s.feedback {
		if fb.IsLike == isLike {
			n++
		}
	}
	return n, nil
}
