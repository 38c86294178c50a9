package realtime

import (
	"context"

	"github.com/google/uuid"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
)

// MembershipChecker answers whether a user participates in a conversation.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

// PresenceMember is the metadata other members of a presence channel see.
type PresenceMember struct {
	UserID string            `json:"user_id"`
	Info   map[string]string `json:"user_info"`
}

// Grant is a successful subscription decision.
type Grant struct {
	Channel string
	Kind    ChannelKind
	Member  *PresenceMember
}

// Authorizer decides who may subscribe to which channel.
type Authorizer struct {
	members MembershipChecker
}

func NewAuthorizer(members MembershipChecker) *Authorizer {
	return &Authorizer{members: members}
}

// Authorize grants private user channels only to their owner, presence
// channels to any authenticated user and conversation channels to current
// participants. Denials are Forbidden.
func (a *Authorizer) Authorize(ctx context.Context, user models.User, channel string) (Grant, error) {
	kind, id := ParseChannel(channel)
	switch kind {
	case ChannelPrivateUser:
		if id != user.ID {
			return Grant{}, apperrors.Forbidden("cannot subscribe to another user's private channel")
		}
		return Grant{Channel: channel, Kind: kind}, nil
	case ChannelPresence:
		member := NewPresenceMember(user)
		return Grant{Channel: channel, Kind: kind, Member: &member}, nil
	case ChannelConversation:
		ok, err := a.members.IsParticipant(ctx, id, user.ID)
		if err != nil {
			return Grant{}, err
		}
		if !ok {
			return Grant{}, apperrors.Forbidden("not a participant of this conversation")
		}
		return Grant{Channel: channel, Kind: kind}, nil
	}
	return Grant{}, apperrors.Forbidden("unknown channel")
}

// NewPresenceMember exposes the public profile of user. The email is never
// included.
func NewPresenceMember(user models.User) PresenceMember {
	info := map[string]string{}
	summary := user.Summary()
	put := func(key string, value *string) {
		if value != nil && *value != "" {
			info[key] = *value
		}
	}
	put("username", summary.Username)
	put("first_name", summary.FirstName)
	put("last_name", summary.LastName)
	put("image_url", summary.ImageURL)
	return PresenceMember{UserID: user.ID.String(), Info: info}
}
