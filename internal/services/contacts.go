package services

import (
	"context"

	"github.com/google/uuid"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
	"echo-service/internal/repositories"
)

// ContactService manages contact requests and the accepted-contact relation.
type ContactService interface {
	SendRequest(ctx context.Context, initiator, receiver uuid.UUID) (models.Contact, error)
	AcceptRequest(ctx context.Context, actor, contactID uuid.UUID) (models.Contact, error)
	RejectRequest(ctx context.Context, actor, contactID uuid.UUID) error
	ListAccepted(ctx context.Context, user uuid.UUID) ([]models.ContactView, error)
	ListIncomingPending(ctx context.Context, user uuid.UUID) ([]models.ContactView, error)
	ListOutgoingPending(ctx context.Context, user uuid.UUID) ([]models.ContactView, error)
	AreAcceptedContacts(ctx context.Context, a, b uuid.UUID) (bool, error)
}

type contactService struct {
	contacts repositories.ContactRepository
	users    repositories.UserRepository
}

func NewContactService(contacts repositories.ContactRepository, users repositories.UserRepository) ContactService {
	return &contactService{contacts: contacts, users: users}
}

func (s *contactService) SendRequest(ctx context.Context, initiator, receiver uuid.UUID) (models.Contact, error) {
	if initiator == receiver {
		return models.Contact{}, apperrors.InvalidOperation("cannot send a contact request to yourself")
	}
	if _, err := s.users.GetByID(ctx, receiver); err != nil {
		return models.Contact{}, err
	}

	existing, found, err := s.contacts.FindBetween(ctx, initiator, receiver)
	if err != nil {
		return models.Contact{}, err
	}
	if found {
		if existing.Status == models.ContactAccepted {
			return models.Contact{}, apperrors.Conflict("already in contacts")
		}
		return models.Contact{}, apperrors.Conflict("contact request already pending")
	}

	return s.contacts.Create(ctx, initiator, receiver)
}

func (s *contactService) AcceptRequest(ctx context.Context, actor, contactID uuid.UUID) (models.Contact, error) {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return models.Contact{}, err
	}
	if contact.ReceiverID != actor {
		return models.Contact{}, apperrors.InvalidOperation("only the receiver can accept a contact request")
	}
	if contact.Status != models.ContactPending {
		return models.Contact{}, apperrors.InvalidOperation("contact request is not pending")
	}
	return s.contacts.Accept(ctx, contactID)
}

// RejectRequest deletes the edge. It also serves as "remove contact" for
// accepted edges.
func (s *contactService) RejectRequest(ctx context.Context, actor, contactID uuid.UUID) error {
	contact, err := s.contacts.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if !contact.Involves(actor) {
		return apperrors.Forbidden("not part of this contact request")
	}
	return s.contacts.Delete(ctx, contactID)
}

func (s *contactService) ListAccepted(ctx context.Context, user uuid.UUID) ([]models.ContactView, error) {
	edges, err := s.contacts.ListAccepted(ctx, user)
	if err != nil {
		return nil, err
	}
	return project(edges, user), nil
}

func (s *contactService) ListIncomingPending(ctx context.Context, user uuid.UUID) ([]models.ContactView, error) {
	edges, err := s.contacts.ListIncomingPending(ctx, user)
	if err != nil {
		return nil, err
	}
	return project(edges, user), nil
}

func (s *contactService) ListOutgoingPending(ctx context.Context, user uuid.UUID) ([]models.ContactView, error) {
	edges, err := s.contacts.ListOutgoingPending(ctx, user)
	if err != nil {
		return nil, err
	}
	return project(edges, user), nil
}

func (s *contactService) AreAcceptedContacts(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return false, nil
	}
	return s.contacts.AreAccepted(ctx, a, b)
}

func project(edges []models.ContactEdge, viewer uuid.UUID) []models.ContactView {
	views := make([]models.ContactView, 0, len(edges))
	for _, edge := range edges {
		if view, ok := models.ProjectContact(edge, viewer); ok {
			views = append(views, view)
		}
	}
	return views
}
