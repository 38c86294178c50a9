package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"echo-service/internal/models"
	"echo-service/internal/services"
)

type UserServiceMock struct {
	mock.Mock
}

var _ services.UserService = (*UserServiceMock)(nil)

func (m *UserServiceMock) user(args mock.Arguments) (models.User, error) {
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserServiceMock) users(args mock.Arguments) ([]models.User, error) {
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserServiceMock) Provision(ctx context.Context, subject string) (models.User, error) {
	return m.user(m.Called(ctx, subject))
}

func (m *UserServiceMock) SyncCreated(ctx context.Context, profile models.ExternalProfile) (models.User, error) {
	return m.user(m.Called(ctx, profile))
}

func (m *UserServiceMock) SyncUpdated(ctx context.Context, profile models.ExternalProfile) (models.User, error) {
	return m.user(m.Called(ctx, profile))
}

func (m *UserServiceMock) Deprovision(ctx context.Context, externalID string) error {
	args := m.Called(ctx, externalID)
	return args.Error(0)
}

func (m *UserServiceMock) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *UserServiceMock) List(ctx context.Context, requester uuid.UUID) ([]models.User, error) {
	return m.users(m.Called(ctx, requester))
}

func (m *UserServiceMock) Search(ctx context.Context, requester uuid.UUID, query string) ([]models.User, error) {
	return m.users(m.Called(ctx, requester, query))
}

func (m *UserServiceMock) UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (models.User, error) {
	return m.user(m.Called(ctx, id, update))
}

type ContactServiceMock struct {
	mock.Mock
}

var _ services.ContactService = (*ContactServiceMock)(nil)

func (m *ContactServiceMock) SendRequest(ctx context.Context, initiator, receiver uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, initiator, receiver)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactServiceMock) AcceptRequest(ctx context.Context, actor, contactID uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, actor, contactID)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactServiceMock) RejectRequest(ctx context.Context, actor, contactID uuid.UUID) error {
	args := m.Called(ctx, actor, contactID)
	return args.Error(0)
}

func (m *ContactServiceMock) views(args mock.Arguments) ([]models.ContactView, error) {
	var views []models.ContactView
	if val := args.Get(0); val != nil {
		views = val.([]models.ContactView)
	}
	return views, args.Error(1)
}

func (m *ContactServiceMock) ListAccepted(ctx context.Context, user uuid.UUID) ([]models.ContactView, error) {
	return m.views(m.Called(ctx, user))
}

func (m *ContactServiceMock) ListIncomingPending(ctx context.Context, user uuid.UUID) ([]models.ContactView, error) {
	return m.views(m.Called(ctx, user))
}

func (m *ContactServiceMock) ListOutgoingPending(ctx context.Context, user uuid.UUID) ([]models.ContactView, error) {
	return m.views(m.Called(ctx, user))
}

func (m *ContactServiceMock) AreAcceptedContacts(ctx context.Context, a, b uuid.UUID) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

type ConversationServiceMock struct {
	mock.Mock
}

var _ services.ConversationService = (*ConversationServiceMock)(nil)

func (m *ConversationServiceMock) details(args mock.Arguments) (models.ConversationDetails, error) {
	var details models.ConversationDetails
	if val := args.Get(0); val != nil {
		details = val.(models.ConversationDetails)
	}
	return details, args.Error(1)
}

func (m *ConversationServiceMock) participants(args mock.Arguments) ([]models.Participant, error) {
	var participants []models.Participant
	if val := args.Get(0); val != nil {
		participants = val.([]models.Participant)
	}
	return participants, args.Error(1)
}

func (m *ConversationServiceMock) Create(ctx context.Context, creator uuid.UUID, input services.CreateConversationInput) (models.ConversationDetails, error) {
	return m.details(m.Called(ctx, creator, input))
}

func (m *ConversationServiceMock) FindOrCreateDirect(ctx context.Context, user, contactID uuid.UUID) (models.ConversationDetails, error) {
	return m.details(m.Called(ctx, user, contactID))
}

func (m *ConversationServiceMock) Get(ctx context.Context, id, requester uuid.UUID) (models.ConversationDetails, error) {
	return m.details(m.Called(ctx, id, requester))
}

func (m *ConversationServiceMock) ListForUser(ctx context.Context, user uuid.UUID) ([]models.ConversationDetails, error) {
	args := m.Called(ctx, user)
	var list []models.ConversationDetails
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationDetails)
	}
	return list, args.Error(1)
}

func (m *ConversationServiceMock) Rename(ctx context.Context, id, requester uuid.UUID, name string) (models.Conversation, error) {
	args := m.Called(ctx, id, requester, name)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationServiceMock) ListParticipants(ctx context.Context, id, requester uuid.UUID) ([]models.Participant, error) {
	return m.participants(m.Called(ctx, id, requester))
}

func (m *ConversationServiceMock) AddParticipants(ctx context.Context, id, requester uuid.UUID, userIDs []uuid.UUID) ([]models.Participant, error) {
	return m.participants(m.Called(ctx, id, requester, userIDs))
}

func (m *ConversationServiceMock) RemoveParticipant(ctx context.Context, id, requester, target uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, requester, target)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationServiceMock) UpdateParticipantRole(ctx context.Context, id, requester, target uuid.UUID, role models.ParticipantRole) (models.Participant, error) {
	args := m.Called(ctx, id, requester, target, role)
	var participant models.Participant
	if val := args.Get(0); val != nil {
		participant = val.(models.Participant)
	}
	return participant, args.Error(1)
}

func (m *ConversationServiceMock) Leave(ctx context.Context, id, user uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, user)
	return args.Bool(0), args.Error(1)
}

type MessageServiceMock struct {
	mock.Mock
}

var _ services.MessageService = (*MessageServiceMock)(nil)

func (m *MessageServiceMock) message(args mock.Arguments) (models.Message, error) {
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageServiceMock) Send(ctx context.Context, conversationID, sender uuid.UUID, content string) (models.Message, error) {
	return m.message(m.Called(ctx, conversationID, sender, content))
}

func (m *MessageServiceMock) List(ctx context.Context, conversationID, requester uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, requester)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageServiceMock) Get(ctx context.Context, conversationID, messageID, requester uuid.UUID) (models.Message, error) {
	return m.message(m.Called(ctx, conversationID, messageID, requester))
}

func (m *MessageServiceMock) Edit(ctx context.Context, conversationID, messageID, requester uuid.UUID, content string) (models.Message, error) {
	return m.message(m.Called(ctx, conversationID, messageID, requester, content))
}

func (m *MessageServiceMock) Delete(ctx context.Context, conversationID, messageID, requester uuid.UUID) error {
	args := m.Called(ctx, conversationID, messageID, requester)
	return args.Error(0)
}

func (m *MessageServiceMock) MarkRead(ctx context.Context, conversationID, user uuid.UUID) error {
	args := m.Called(ctx, conversationID, user)
	return args.Error(0)
}

type PresenceServiceMock struct {
	mock.Mock
}

var _ services.PresenceService = (*PresenceServiceMock)(nil)

func (m *PresenceServiceMock) SetOnline(ctx context.Context, user uuid.UUID) (models.PresenceStatus, error) {
	args := m.Called(ctx, user)
	var status models.PresenceStatus
	if val := args.Get(0); val != nil {
		status = val.(models.PresenceStatus)
	}
	return status, args.Error(1)
}

func (m *PresenceServiceMock) SetOffline(ctx context.Context, user uuid.UUID) (models.PresenceStatus, error) {
	args := m.Called(ctx, user)
	var status models.PresenceStatus
	if val := args.Get(0); val != nil {
		status = val.(models.PresenceStatus)
	}
	return status, args.Error(1)
}

func (m *PresenceServiceMock) Heartbeat(ctx context.Context, user uuid.UUID) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *PresenceServiceMock) ListContactsStatus(ctx context.Context, user uuid.UUID) ([]models.PresenceStatus, error) {
	args := m.Called(ctx, user)
	var statuses []models.PresenceStatus
	if val := args.Get(0); val != nil {
		statuses = val.([]models.PresenceStatus)
	}
	return statuses, args.Error(1)
}
