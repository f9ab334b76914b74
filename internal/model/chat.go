package model

import (
	"time"
)

// ChatRequest is an inbound question.
type ChatRequest struct {
	Question       string `json:"question"`
	IsNew          bool   `json:"is_new"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// Reply is the assistant half of a chat exchange.
type Reply struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatResponse is returned for every chat request. Conversation fields are
// only populated when the request opened a new conversation.
type ChatResponse struct {
	ConversationID string     `json:"conversation_id"`
	MessageID      string     `json:"message_id"`
	Content        string     `json:"content"`
	Timestamp      time.Time  `json:"timestamp"`
	IsNew          bool       `json:"is_new"`
	UserID         string     `json:"user_id,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	Reply          *Reply     `json:"reply,omitempty"`
}

// PairWrite is a complete paired write. It is the payload of the
// persistence queue, so it must stay JSON-stable.
type PairWrite struct {
	ConversationID string       `json:"conversation_id"`
	Subject        string       `json:"subject"`
	First          MessageInput `json:"first"`
	Second         MessageInput `json:"second"`
	InputTokens    int          `json:"input_tokens"`
	OutputTokens   int          `json:"output_tokens"`
	Timestamp      time.Time    `json:"timestamp"`
}
