package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

type billing struct {
	coll *mongo.Collection
}

func bucketSelector(key model.BucketKey) bson.D {
	return bson.D{
		{Key: "frequency", Value: key.Frequency},
		{Key: "date_key", Value: key.DateKey},
		{Key: "tenant_id", Value: key.TenantID},
	}
}

func incrementUpdate(key model.BucketKey, inputTokens, outputTokens int, cost float64) bson.D {
	return bson.D{
		{Key: "$inc", Value: bson.D{
			{Key: "input_tokens", Value: int64(inputTokens)},
			{Key: "output_tokens", Value: int64(outputTokens)},
			{Key: "cost", Value: cost},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "sort_key", Value: key.SortKey}}},
	}
}

func bucketQuery(filter store.BucketFilter) bson.D {
	q := bson.D{}
	if filter.Frequency != "" {
		q = append(q, bson.E{Key: "frequency", Value: filter.Frequency})
	}

	rng := bson.D{}
	if filter.From != "" {
		rng = append(rng, bson.E{Key: "$gte", Value: filter.From})
	}
	if filter.To != "" {
		rng = append(rng, bson.E{Key: "$lte", Value: filter.To})
	}
	if len(rng) > 0 {
		q = append(q, bson.E{Key: "sort_key", Value: rng})
	}
	return q
}

// Increment is a single $inc upsert so concurrent writers never lose an
// update.
func (b *billing) Increment(ctx context.Context, key model.BucketKey, inputTokens, outputTokens int, cost float64) error {
	update := incrementUpdate(key, inputTokens, outputTokens, cost)
	opts := options.Update().SetUpsert(true)

	_, err := b.coll.UpdateOne(ctx, bucketSelector(key), update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = b.coll.UpdateOne(ctx, bucketSelector(key), update, opts)
	}
	return translate(err)
}

func (b *billing) Query(ctx context.Context, filter store.BucketFilter, skip, limit int) ([]model.BillingBucket, int64, error) {
	q := bucketQuery(filter)

	total, err := b.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, translate(err)
	}

	opts := findPage(skip, limit).SetSort(bson.D{
		{Key: "sort_key", Value: 1},
		{Key: "tenant_id", Value: 1},
	})
	cursor, err := b.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, translate(err)
	}

	out := []model.BillingBucket{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}
