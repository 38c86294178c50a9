package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is either a 1:1 conversation or a named group.
type Conversation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      *string   `db:"name" json:"name,omitempty"`
	IsGroup   bool      `db:"is_group" json:"is_group"`
	DirectKey *string   `db:"direct_key" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type ParticipantRole string

const (
	RoleAdmin  ParticipantRole = "ADMIN"
	RoleMember ParticipantRole = "MEMBER"
)

func (r ParticipantRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Participant is the membership of one user in one conversation.
type Participant struct {
	ConversationID uuid.UUID       `db:"conversation_id" json:"conversation_id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Role           ParticipantRole `db:"role" json:"role"`
	JoinedAt       time.Time       `db:"joined_at" json:"joined_at"`
	LastReadAt     *time.Time      `db:"last_read_at" json:"last_read_at,omitempty"`
	User           UserSummary     `db:"user" json:"user"`
}

// NewParticipant is a membership to be inserted.
type NewParticipant struct {
	UserID uuid.UUID
	Role   ParticipantRole
}

// ConversationDetails is a conversation with its members and latest activity.
type ConversationDetails struct {
	Conversation
	Participants []Participant `json:"participants"`
	LastMessage  *Message      `json:"last_message,omitempty"`
	UnreadCount  int           `json:"unread_count"`
}

// HasParticipant reports whether userID is a current member.
func (d ConversationDetails) HasParticipant(userID uuid.UUID) bool {
	for _, p := range d.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// DirectKey identifies the unordered pair of a 1:1 conversation.
func DirectKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}
