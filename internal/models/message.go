package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a text message in a conversation.
type Message struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	ConversationID uuid.UUID   `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID   `db:"sender_id" json:"sender_id"`
	Content        string      `db:"content" json:"content"`
	IsEdited       bool        `db:"is_edited" json:"is_edited"`
	EditedAt       *time.Time  `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	Sender         UserSummary `db:"sender" json:"sender"`
}

// MessageDeleted is the payload published when a message is removed.
type MessageDeleted struct {
	MessageID uuid.UUID `json:"message_id"`
}
