package realtime

import (
	"strings"

	"github.com/google/uuid"
)

const (
	EventNewMessage           = "new-message"
	EventMessageUpdated       = "message-updated"
	EventMessageDeleted       = "message-deleted"
	EventContactStatusChanged = "contact-status-changed"
)

const (
	conversationPrefix = "conversation-"
	privateUserPrefix  = "private-user-"
	presencePrefix     = "presence-"
)

// ConversationChannel carries message events of one conversation.
func ConversationChannel(conversationID uuid.UUID) string {
	return conversationPrefix + conversationID.String()
}

// UserChannel is the private per-user channel.
func UserChannel(userID uuid.UUID) string {
	return privateUserPrefix + userID.String()
}

// ChannelKind classifies a channel name.
type ChannelKind int

const (
	ChannelUnknown ChannelKind = iota
	ChannelConversation
	ChannelPrivateUser
	ChannelPresence
)

// ParseChannel returns the kind of name and, for conversation and private
// user channels, the id it is keyed by.
func ParseChannel(name string) (ChannelKind, uuid.UUID) {
	switch {
	case strings.HasPrefix(name, privateUserPrefix):
		id, err := uuid.Parse(strings.TrimPrefix(name, privateUserPrefix))
		if err != nil {
			return ChannelUnknown, uuid.Nil
		}
		return ChannelPrivateUser, id
	case strings.HasPrefix(name, presencePrefix):
		if len(name) == len(presencePrefix) {
			return ChannelUnknown, uuid.Nil
		}
		return ChannelPresence, uuid.Nil
	case strings.HasPrefix(name, conversationPrefix):
		id, err := uuid.Parse(strings.TrimPrefix(name, conversationPrefix))
		if err != nil {
			return ChannelUnknown, uuid.Nil
		}
		return ChannelConversation, id
	}
	return ChannelUnknown, uuid.Nil
}

// Envelope is the wire form of an event for transports that carry the
// channel and event name in the body.
type Envelope struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    any    `json:"data"`
}
