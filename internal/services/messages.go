package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
	"echo-service/internal/realtime"
	"echo-service/internal/repositories"
)

const maxMessageLength = 4000

// MessageService stores messages and fans out their lifecycle events on the
// conversation channel.
type MessageService interface {
	Send(ctx context.Context, conversationID, sender uuid.UUID, content string) (models.Message, error)
	List(ctx context.Context, conversationID, requester uuid.UUID) ([]models.Message, error)
	Get(ctx context.Context, conversationID, messageID, requester uuid.UUID) (models.Message, error)
	Edit(ctx context.Context, conversationID, messageID, requester uuid.UUID, content string) (models.Message, error)
	Delete(ctx context.Context, conversationID, messageID, requester uuid.UUID) error
	MarkRead(ctx context.Context, conversationID, user uuid.UUID) error
}

type messageService struct {
	messages      repositories.MessageRepository
	conversations repositories.ConversationRepository
	notifier      realtime.Notifier
	now           func() time.Time
}

func NewMessageService(messages repositories.MessageRepository, conversations repositories.ConversationRepository, notifier realtime.Notifier) MessageService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &messageService{
		messages:      messages,
		conversations: conversations,
		notifier:      notifier,
		now:           time.Now,
	}
}

func (s *messageService) Send(ctx context.Context, conversationID, sender uuid.UUID, content string) (models.Message, error) {
	content, err := validContent(content)
	if err != nil {
		return models.Message{}, err
	}
	if err := s.requireParticipant(ctx, conversationID, sender); err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.Create(ctx, conversationID, sender, content)
	if err != nil {
		return models.Message{}, err
	}
	s.notifier.Notify(ctx, realtime.ConversationChannel(conversationID), realtime.EventNewMessage, msg)
	return msg, nil
}

func (s *messageService) List(ctx context.Context, conversationID, requester uuid.UUID) ([]models.Message, error) {
	if err := s.requireParticipant(ctx, conversationID, requester); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID)
}

func (s *messageService) Get(ctx context.Context, conversationID, messageID, requester uuid.UUID) (models.Message, error) {
	msg, err := s.load(ctx, conversationID, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if err := s.requireParticipant(ctx, msg.ConversationID, requester); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *messageService) Edit(ctx context.Context, conversationID, messageID, requester uuid.UUID, content string) (models.Message, error) {
	msg, err := s.load(ctx, conversationID, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != requester {
		return models.Message{}, apperrors.Forbidden("you can only edit your own messages")
	}
	content, err = validContent(content)
	if err != nil {
		return models.Message{}, err
	}

	updated, err := s.messages.UpdateContent(ctx, messageID, content, s.now())
	if err != nil {
		return models.Message{}, err
	}
	s.notifier.Notify(ctx, realtime.ConversationChannel(updated.ConversationID), realtime.EventMessageUpdated, updated)
	return updated, nil
}

func (s *messageService) Delete(ctx context.Context, conversationID, messageID, requester uuid.UUID) error {
	msg, err := s.load(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requester {
		return apperrors.Forbidden("you can only delete your own messages")
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return err
	}
	s.notifier.Notify(ctx, realtime.ConversationChannel(msg.ConversationID), realtime.EventMessageDeleted, models.MessageDeleted{MessageID: messageID})
	return nil
}

// MarkRead has no fanout; read state only feeds unread counts.
func (s *messageService) MarkRead(ctx context.Context, conversationID, user uuid.UUID) error {
	ok, err := s.conversations.MarkRead(ctx, conversationID, user, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return errNotParticipant()
	}
	return nil
}

// load fetches a message addressed through conversationID. A message of
// another conversation is reported as missing.
func (s *messageService) load(ctx context.Context, conversationID, messageID uuid.UUID) (models.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.ConversationID != conversationID {
		return models.Message{}, apperrors.NotFound("message not found")
	}
	return msg, nil
}

func (s *messageService) requireParticipant(ctx context.Context, conversationID, user uuid.UUID) error {
	ok, err := s.conversations.IsParticipant(ctx, conversationID, user)
	if err != nil {
		return err
	}
	if !ok {
		return errNotParticipant()
	}
	return nil
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.InvalidOperation("message content must not be empty")
	}
	if len([]rune(content)) > maxMessageLength {
		return "", apperrors.InvalidOperation("message content is too long")
	}
	return content, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, channel, event string, payload any) {}
