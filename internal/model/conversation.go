// Package model defines the documents persisted by the chat ledger and the
// request/response shapes built around them.
package model

import (
	"time"

	"github.com/mehraj-vivasoft/pihr-autoquery/internal/pagination"
)

// Conversation represents a conversation thread owned by a single user.
type Conversation struct {
	ID        string    `json:"id" bson:"id"`
	Subject   string    `json:"subject" bson:"subject"`
	OwnerID   string    `json:"owner_id" bson:"owner_id"`
	TenantID  string    `json:"tenant_id" bson:"tenant_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewConversation builds a conversation stamped with now. The tenant is
// derived from the conversation id.
func NewConversation(id, subject, ownerID string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Subject:   subject,
		OwnerID:   ownerID,
		TenantID:  TenantID(id),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	OwnerID string `json:"owner_id"`
}

// UpdateConversationRequest is the request to rename a conversation.
type UpdateConversationRequest struct {
	Subject string `json:"subject"`
}

// ConversationsPage is one page of an owner's conversations.
type ConversationsPage struct {
	Conversations []Conversation        `json:"conversations"`
	Metadata      pagination.Metadata `json:"metadata"`
}
