package services

import "github.com/google/uuid"

// SubscriptionRevoker drops live realtime subscriptions that a membership
// change no longer allows. Channel authorization only runs at subscribe
// time, so removals must be pushed to open connections.
type SubscriptionRevoker interface {
	RevokeConversation(userID, conversationID uuid.UUID)
	RevokeUser(userID uuid.UUID)
}

type noopRevoker struct{}

func (noopRevoker) RevokeConversation(uuid.UUID, uuid.UUID) {}

func (noopRevoker) RevokeUser(uuid.UUID) {}
