package model

import (
	"time"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role the ledger accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single chat turn. Messages are immutable once stored.
type Message struct {
	ID             string    `json:"message_id" bson:"message_id"`
	ConversationID string    `json:"conversation_id" bson:"conversation_id"`
	OwnerID        string    `json:"owner_id" bson:"owner_id"`
	Role           Role      `json:"role" bson:"role"`
	Content        string    `json:"content" bson:"content"`
	Summary        string    `json:"summary" bson:"summary"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
	InputTokens    int       `json:"input_tokens" bson:"input_tokens"`
	OutputTokens   int       `json:"output_tokens" bson:"output_tokens"`

	// Billed lists the bucket frequencies this message's tokens have been
	// added to. Only the second message of a pair is billed.
	Billed []Frequency `json:"-" bson:"billed,omitempty"`
}

// BilledTo reports whether m has been billed to the f bucket.
func (m *Message) BilledTo(f Frequency) bool {
	for _, b := range m.Billed {
		if b == f {
			return true
		}
	}
	return false
}

// SameExchange reports whether m and other carry the same turn of the same
// conversation. Retried pair writes compare the stored message against the
// incoming one with it.
func (m *Message) SameExchange(other *Message) bool {
	return m.ConversationID == other.ConversationID &&
		m.OwnerID == other.OwnerID &&
		m.Role == other.Role &&
		m.Content == other.Content
}

// MessageInput is one half of a paired write.
type MessageInput struct {
	OwnerID string `json:"owner_id"`
	ID      string `json:"message_id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Summary string `json:"summary"`
}

// PostMessageRequest is the request to append a single message.
type PostMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	OwnerID        string `json:"owner_id"`
	Role           Role   `json:"role"`
	Content        string `json:"content"`
	Summary        string `json:"summary"`
}

// MessagesPage is one page of a conversation, newest first.
type MessagesPage struct {
	Messages []Message           `json:"messages"`
	Metadata pagination.Metadata `json:"metadata"`
}
