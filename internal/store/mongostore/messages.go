package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

type messages struct {
	coll *mongo.Collection
}

func byMessageConversation(conversationID string) bson.D {
	return bson.D{{Key: "conversation_id", Value: conversationID}}
}

// Insert uses an ordered bulk insert so a duplicate stops the batch at the
// colliding message.
func (m *messages) Insert(ctx context.Context, msgs ...*model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		docs = append(docs, msg)
	}

	if _, err := m.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return translate(err)
	}
	return nil
}

func (m *messages) Get(ctx context.Context, messageID string) (*model.Message, error) {
	var out model.Message
	if err := m.coll.FindOne(ctx, bson.D{{Key: "message_id", Value: messageID}}).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// ClaimBilling adds f to the billed set only when it is absent, so two
// writers racing on the same pair cannot both claim a bucket.
func (m *messages) ClaimBilling(ctx context.Context, messageID string, f model.Frequency) (bool, error) {
	filter := bson.D{
		{Key: "message_id", Value: messageID},
		{Key: "billed", Value: bson.D{{Key: "$ne", Value: f}}},
	}
	update := bson.D{{Key: "$addToSet", Value: bson.D{{Key: "billed", Value: f}}}}

	res, err := m.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate(err)
	}
	return res.ModifiedCount == 1, nil
}

func (m *messages) ReleaseBilling(ctx context.Context, messageID string, f model.Frequency) error {
	filter := bson.D{{Key: "message_id", Value: messageID}}
	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "billed", Value: f}}}}

	res, err := m.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (m *messages) Siblings(ctx context.Context, conversationID string, ts time.Time) ([]model.Message, error) {
	filter := bson.D{
		{Key: "conversation_id", Value: conversationID},
		{Key: "created_at", Value: ts},
	}
	cursor, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, translate(err)
	}

	var out []model.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (m *messages) ListByConversation(ctx context.Context, conversationID string, skip, limit int) ([]model.Message, error) {
	opts := findPage(skip, limit).SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "role", Value: 1},
	})
	cursor, err := m.coll.Find(ctx, byMessageConversation(conversationID), opts)
	if err != nil {
		return nil, translate(err)
	}

	out := []model.Message{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (m *messages) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, byMessageConversation(conversationID))
	return n, translate(err)
}

func (m *messages) Count(ctx context.Context) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, bson.D{})
	return n, translate(err)
}

func (m *messages) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	res, err := m.coll.DeleteMany(ctx, byMessageConversation(conversationID))
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

func monthlyUsagePipeline(ownerID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "owner_id", Value: ownerID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "year", Value: bson.D{{Key: "$year", Value: "$created_at"}}},
				{Key: "month", Value: bson.D{{Key: "$month", Value: "$created_at"}}},
			}},
			{Key: "input_tokens", Value: bson.D{{Key: "$sum", Value: "$input_tokens"}}},
			{Key: "output_tokens", Value: bson.D{{Key: "$sum", Value: "$output_tokens"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "year", Value: "$_id.year"},
			{Key: "month", Value: "$_id.month"},
			{Key: "input_tokens", Value: 1},
			{Key: "output_tokens", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "year", Value: 1}, {Key: "month", Value: 1}}}},
	}
}

func (m *messages) MonthlyUsage(ctx context.Context, ownerID string) ([]model.MonthlyUsage, error) {
	cursor, err := m.coll.Aggregate(ctx, monthlyUsagePipeline(ownerID))
	if err != nil {
		return nil, translate(err)
	}

	out := []model.MonthlyUsage{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}
