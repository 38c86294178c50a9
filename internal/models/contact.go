package models

import (
	"time"

	"github.com/google/uuid"
)

type ContactStatus string

const (
	ContactPending  ContactStatus = "PENDING"
	ContactAccepted ContactStatus = "ACCEPTED"
)

// Contact is a directed request edge. Rejection deletes the row.
type Contact struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	InitiatorID uuid.UUID     `db:"initiator_id" json:"initiator_id"`
	ReceiverID  uuid.UUID     `db:"receiver_id" json:"receiver_id"`
	Status      ContactStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// Involves reports whether userID is one of the two ends of the edge.
func (c Contact) Involves(userID uuid.UUID) bool {
	return c.InitiatorID == userID || c.ReceiverID == userID
}

// ContactEdge is a Contact loaded together with both of its users.
type ContactEdge struct {
	Contact
	Initiator User `db:"initiator"`
	Receiver  User `db:"receiver"`
}

// ContactView is a contact as seen by one of its two ends.
type ContactView struct {
	ContactID uuid.UUID     `json:"contact_id"`
	Status    ContactStatus `json:"status"`
	Direction string        `json:"direction"`
	User      User          `json:"user"`
	CreatedAt time.Time     `json:"created_at"`
}

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// ProjectContact returns the other party's view of edge for viewer.
// ok is false when viewer is not part of the edge.
func ProjectContact(edge ContactEdge, viewer uuid.UUID) (ContactView, bool) {
	view := ContactView{
		ContactID: edge.ID,
		Status:    edge.Status,
		CreatedAt: edge.CreatedAt,
	}
	switch viewer {
	case edge.InitiatorID:
		view.User = edge.Receiver
		view.Direction = DirectionOutgoing
	case edge.ReceiverID:
		view.User = edge.Initiator
		view.Direction = DirectionIncoming
	default:
		return ContactView{}, false
	}
	return view, true
}
