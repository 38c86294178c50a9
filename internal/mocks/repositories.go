package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"echo-service/internal/models"
	"echo-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)

func (m *UserRepositoryMock) Upsert(ctx context.Context, profile models.ExternalProfile, markOnline bool, at time.Time) (models.User, error) {
	args := m.Called(ctx, profile, markOnline, at)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UpdateByExternalID(ctx context.Context, profile models.ExternalProfile) (models.User, error) {
	args := m.Called(ctx, profile)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) DeleteByExternalID(ctx context.Context, externalID string) (uuid.UUID, error) {
	args := m.Called(ctx, externalID)
	var id uuid.UUID
	if val := args.Get(0); val != nil {
		id = val.(uuid.UUID)
	}
	return id, args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListExcept(ctx context.Context, id uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, id)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) Search(ctx context.Context, query string, except uuid.UUID, limit int) ([]models.User, error) {
	args := m.Called(ctx, query, except, limit)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (models.User, error) {
	args := m.Called(ctx, id, update)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids)
	var found []uuid.UUID
	if val := args.Get(0); val != nil {
		found = val.([]uuid.UUID)
	}
	return found, args.Error(1)
}

func (m *UserRepositoryMock) SetPresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) (models.PresenceStatus, error) {
	args := m.Called(ctx, id, online, at)
	var status models.PresenceStatus
	if val := args.Get(0); val != nil {
		status = val.(models.PresenceStatus)
	}
	return status, args.Error(1)
}

func (m *UserRepositoryMock) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *UserRepositoryMock) ListPresence(ctx context.Context, ids []uuid.UUID) ([]models.PresenceStatus, error) {
	args := m.Called(ctx, ids)
	var statuses []models.PresenceStatus
	if val := args.Get(0); val != nil {
		statuses = val.([]models.PresenceStatus)
	}
	return statuses, args.Error(1)
}

type ContactRepositoryMock struct {
	mock.Mock
}

var _ repositories.ContactRepository = (*ContactRepositoryMock)(nil)

func (m *ContactRepositoryMock) Create(ctx context.Context, initiatorID, receiverID uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, initiatorID, receiverID)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, id)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactRepositoryMock) FindBetween(ctx context.Context, a, b uuid.UUID) (models.Contact, bool, error) {
	args := m.Called(ctx, a, b)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Bool(1), args.Error(2)
}

func (m *ContactRepositoryMock) Accept(ctx context.Context, id uuid.UUID) (models.Contact, error) {
	args := m.Called(ctx, id)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactRepositoryMock) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ContactRepositoryMock) ListAccepted(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error) {
	return m.edges(m.Called(ctx, userID))
}

func (m *ContactRepositoryMock) ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error) {
	return m.edges(m.Called(ctx, userID))
}

func (m *ContactRepositoryMock) ListOutgoingPending(ctx context.Context, userID uuid.UUID) ([]models.ContactEdge, error) {
	return m.edges(m.Called(ctx, userID))
}

func (m *ContactRepositoryMock) edges(args mock.Arguments) ([]models.ContactEdge, error) {
	var edges []models.ContactEdge
	if val := args.Get(0); val != nil {
		edges = val.([]models.ContactEdge)
	}
	return edges, args.Error(1)
}

func (m *ContactRepositoryMock) AreAccepted(ctx context.Context, a, b uuid.UUID) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

func (m *ContactRepositoryMock) AcceptedContactIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	var ids []uuid.UUID
	if val := args.Get(0); val != nil {
		ids = val.([]uuid.UUID)
	}
	return ids, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)

func (m *ConversationRepositoryMock) Create(ctx context.Context, conv repositories.NewConversation, participants []models.NewParticipant) (models.Conversation, error) {
	args := m.Called(ctx, conv, participants)
	var created models.Conversation
	if val := args.Get(0); val != nil {
		created = val.(models.Conversation)
	}
	return created, args.Error(1)
}

func (m *ConversationRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) FindByDirectKey(ctx context.Context, key string) (models.Conversation, bool, error) {
	args := m.Called(ctx, key)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationDetails, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationDetails
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationDetails)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) UpdateName(ctx context.Context, id uuid.UUID, name string) (models.Conversation, error) {
	args := m.Called(ctx, id, name)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]models.Participant, error) {
	args := m.Called(ctx, conversationID)
	var participants []models.Participant
	if val := args.Get(0); val != nil {
		participants = val.([]models.Participant)
	}
	return participants, args.Error(1)
}

func (m *ConversationRepositoryMock) GetParticipant(ctx context.Context, conversationID, userID uuid.UUID) (models.Participant, error) {
	args := m.Called(ctx, conversationID, userID)
	var participant models.Participant
	if val := args.Get(0); val != nil {
		participant = val.(models.Participant)
	}
	return participant, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) AddParticipants(ctx context.Context, conversationID uuid.UUID, userIDs []uuid.UUID, role models.ParticipantRole) ([]uuid.UUID, error) {
	args := m.Called(ctx, conversationID, userIDs, role)
	var added []uuid.UUID
	if val := args.Get(0); val != nil {
		added = val.([]uuid.UUID)
	}
	return added, args.Error(1)
}

func (m *ConversationRepositoryMock) RemoveParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) ReleaseDirectKey(ctx context.Context, conversationID uuid.UUID) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) UpdateParticipantRole(ctx context.Context, conversationID, userID uuid.UUID, role models.ParticipantRole) (models.Participant, error) {
	args := m.Called(ctx, conversationID, userID, role)
	var participant models.Participant
	if val := args.Get(0); val != nil {
		participant = val.(models.Participant)
	}
	return participant, args.Error(1)
}

func (m *ConversationRepositoryMock) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, conversationID, userID, at)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, senderID uuid.UUID, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetByID(ctx context.Context, id uuid.UUID) (models.Message, error) {
	args := m.Called(ctx, id)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedAt time.Time) (models.Message, error) {
	args := m.Called(ctx, id, content, editedAt)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
