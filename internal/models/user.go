package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a locally provisioned identity.
type User struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ExternalID string     `db:"external_id" json:"external_id"`
	Email      string     `db:"email" json:"email"`
	Username   *string    `db:"username" json:"username,omitempty"`
	FirstName  *string    `db:"first_name" json:"first_name,omitempty"`
	LastName   *string    `db:"last_name" json:"last_name,omitempty"`
	ImageURL   *string    `db:"image_url" json:"image_url,omitempty"`
	IsOnline   bool       `db:"is_online" json:"is_online"`
	LastSeenAt *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// UserSummary is the public part of a profile. It never carries the email.
type UserSummary struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  *string   `db:"username" json:"username,omitempty"`
	FirstName *string   `db:"first_name" json:"first_name,omitempty"`
	LastName  *string   `db:"last_name" json:"last_name,omitempty"`
	ImageURL  *string   `db:"image_url" json:"image_url,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		ImageURL:  u.ImageURL,
	}
}

// DisplayName prefers the full name, then any single name, then the
// username, then the local part of the email.
func (u User) DisplayName() string {
	first, last := deref(u.FirstName), deref(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	case deref(u.Username) != "":
		return deref(u.Username)
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// ProfileUpdate holds the fields a user may change about themselves.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExternalProfile is a profile snapshot from the identity provider.
// Empty strings mean "not set".
type ExternalProfile struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ImageURL   string `json:"image_url"`
}
