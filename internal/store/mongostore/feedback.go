package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/model"
)

type feedback struct {
	coll *mongo.Collection
}

func byFeedbackMessage(messageID string) bson.D {
	return bson.D{{Key: "message_id", Value: messageID}}
}

// feedbackUpsert refreshes the like flag and message snapshot while
// keeping the rating and creation time of an existing document.
func feedbackUpsert(fb *model.Feedback) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "is_like", Value: fb.IsLike},
			{Key: "conversation_id", Value: fb.ConversationID},
			{Key: "owner_id", Value: fb.OwnerID},
			{Key: "user_message", Value: fb.UserMessage},
			{Key: "ai_message", Value: fb.AIMessage},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "rating", Value: fb.Rating},
			{Key: "created_at", Value: fb.CreatedAt},
		}},
	}
}

func (f *feedback) Upsert(ctx context.Context, fb *model.Feedback) (*model.Feedback, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out model.Feedback
	err := f.coll.FindOneAndUpdate(ctx, byFeedbackMessage(fb.MessageID), feedbackUpsert(fb), opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		err = f.coll.FindOneAndUpdate(ctx, byFeedbackMessage(fb.MessageID), feedbackUpsert(fb), opts).Decode(&out)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (f *feedback) SetRating(ctx context.Context, messageID string, rating int) (*model.Feedback, error) {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "rating", Value: rating}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out model.Feedback
	if err := f.coll.FindOneAndUpdate(ctx, byFeedbackMessage(messageID), update, opts).Decode(&out); err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (f *feedback) List(ctx context.Context, isLike bool, skip, limit int) ([]model.Feedback, int64, error) {
	filter := bson.D{{Key: "is_like", Value: isLike}}

	total, err := f.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err)
	}

	opts := findPage(skip, limit).SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "message_id", Value: 1},
	})
	cursor, err := f.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err)
	}

	out := []model.Feedback{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}

func (f *feedback) CountByLike(ctx context.Context, isLike bool) (int64, error) {
	n, err := f.coll.CountDocuments(ctx, bson.D{{Key: "is_like", Value: isLike}})
	return n, translate(err)
}
