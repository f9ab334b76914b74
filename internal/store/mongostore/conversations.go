package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
	"github.com/mehraj-vivasoft/pihr-autoquery/internal/store"
)

type conversations struct {
	coll *mongo.Collection
}

func byConversationID(id string) bson.D {
	return bson.D{{Key: "id", Value: id}}
}

// insertFields are the fields written only when the document is created.
// The id comes from the equality filter on upsert.
func insertFields(conv *model.Conversation, now time.Time) bson.D {
	return bson.D{
		{Key: "subject", Value: conv.Subject},
		{Key: "owner_id", Value: conv.OwnerID},
		{Key: "tenant_id", Value: conv.TenantID},
		{Key: "created_at", Value: now},
	}
}

func createUpdate(conv *model.Conversation) bson.D {
	fields := append(insertFields(conv, conv.CreatedAt), bson.E{Key: "updated_at", Value: conv.UpdatedAt})
	return bson.D{{Key: "$setOnInsert", Value: fields}}
}

func touchUpdate(conv *model.Conversation, now time.Time) bson.D {
	return bson.D{
		{Key: "$max", Value: bson.D{{Key: "updated_at", Value: now}}},
		{Key: "$setOnInsert", Value: insertFields(conv, now)},
	}
}

func (c *conversations) Create(ctx context.Context, conv *model.Conversation) (bool, error) {
	res, err := c.coll.UpdateOne(ctx, byConversationID(conv.ID), createUpdate(conv),
		options.Update().SetUpsert(true))
	if err != nil {
		// A concurrent create won the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, translate(err)
	}
	return res.UpsertedCount == 1, nil
}

// Touch reads the document as it was before the update, so a missing
// document means this call inserted it.
func (c *conversations) Touch(ctx context.Context, conv *model.Conversation, now time.Time) (*model.Conversation, bool, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var before model.Conversation
	err := c.coll.FindOneAndUpdate(ctx, byConversationID(conv.ID), touchUpdate(conv, now), opts).Decode(&before)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race; the document exists now, so retry as an update.
		err = c.coll.FindOneAndUpdate(ctx, byConversationID(conv.ID), touchUpdate(conv, now), opts).Decode(&before)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		created := *conv
		created.CreatedAt = now
		created.UpdatedAt = now
		return &created, true, nil
	}
	if err != nil {
		return nil, false, translate(err)
	}

	if now.After(before.UpdatedAt) {
		before.UpdatedAt = now
	}
	return &before, false, nil
}

func (c *conversations) UpdateSubject(ctx context.Context, id, subject string) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "subject", Value: subject}}}}
	if _, err := c.coll.UpdateOne(ctx, byConversationID(id), update); err != nil {
		return translate(err)
	}
	return nil
}

func (c *conversations) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.coll.FindOne(ctx, byConversationID(id)).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (c *conversations) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, byConversationID(id))
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *conversations) ListByOwner(ctx context.Context, ownerID string, skip, limit int) ([]model.Conversation, int64, error) {
	filter := bson.D{{Key: "owner_id", Value: ownerID}}

	total, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err)
	}

	opts := findPage(skip, limit).SetSort(bson.D{
		{Key: "updated_at", Value: -1},
		{Key: "id", Value: 1},
	})
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err)
	}

	out := []model.Conversation{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}
