package model

import (
	"time"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
)

// Unrated is the rating stored on feedback until a rating is posted.
const Unrated = -1

// Feedback is a like/dislike plus optional rating attached to a message.
// There is at most one feedback document per message id.
type Feedback struct {
	MessageID      string    `json:"message_id" bson:"message_id"`
	IsLike         bool      `json:"is_like" bson:"is_like"`
	Rating         int       `json:"rating" bson:"rating"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	ConversationID string    `json:"conversation_id" bson:"conversation_id"`
	OwnerID        string    `json:"owner_id" bson:"owner_id"`
	UserMessage    string    `json:"user_message" bson:"user_message"`
	AIMessage      string    `json:"ai_message" bson:"ai_message"`
}

// FeedbackRequest is the body of a like/dislike post.
type FeedbackRequest struct {
	IsLiked bool `json:"is_liked"`
}

// RatingRequest is the body of a rating post.
type RatingRequest struct {
	Rating int `json:"rating"`
}

// FeedbackPage is one page of feedback, newest first.
type FeedbackPage struct {
	Feedbacks []Feedback          `json:"feedbacks"`
	Metadata  pagination.Metadata `json:"metadata"`
}

// FeedbackSummary aggregates feedback counts against the message ledger.
type FeedbackSummary struct {
	TotalMessages int64 `json:"total_messages"`
	Positive      int64 `json:"positive"`
	Negative      int64 `json:"negative"`
}
