package memory

import (
	"context"
	"sort"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

type billing struct{ s *Store }

func bucketID(key model.BucketKey) string {
	return string(key.Frequency) + "|" + key.DateKey + "|" + key.TenantID
}

func (b billing) Increment(ctx context.Context, key model.BucketKey, inputTokens, outputTokens int, cost float64) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if err := b.s.check(); err != nil {
		return err
	}

	id := bucketID(key)
	bucket, exists := b.s.buckets[id]
	if !exists {
		bucket = &model.BillingBucket{
			Frequency: key.Frequency,
			DateKey:   key.DateKey,
			SortKey:   key.SortKey,
			TenantID:  key.TenantID,
		}
		b.s.buckets[id] = bucket
	}
	bucket.InputTokens += int64(inputTokens)
	bucket.OutputTokens += int64(outputTokens)
	bucket.Cost += cost
	return nil
}

func (b billing) Query(ctx context.Context, filter store.BucketFilter, skip, limit int) ([]model.BillingBucket, int64, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	if err := b.s.check(); err != nil {
		return nil, 0, err
	}

	var out []model.BillingBucket
	for _, bucket := range b.s.buckets {
		if filter.Frequency != "" && bucket.Frequency != filter.Frequency {
			continue
		}
		if filter.From != "" && bucket.SortKey < filter.From {
			continue
		}
		if filter.To != "" && bucket.SortKey > filter.To {
			continue
		}
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].TenantID < out[j].TenantID
	})
	return page(out, skip, limit), int64(len(out)), nil
}
