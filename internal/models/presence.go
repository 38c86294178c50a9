package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceStatus is the online state of a user.
type PresenceStatus struct {
	UserID     uuid.UUID  `db:"id" json:"user_id"`
	IsOnline   bool       `db:"is_online" json:"is_online"`
	LastSeenAt *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
}
