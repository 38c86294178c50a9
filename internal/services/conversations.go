package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
	"echo-service/internal/repositories"
)

// CreateConversationInput is the request to start a conversation. The
// creator is always added to ParticipantIDs.
type CreateConversationInput struct {
	ParticipantIDs []uuid.UUID
	Name           *string
	IsGroup        bool
}

// ConversationService enforces membership and role rules for 1:1 and group
// conversations.
type ConversationService interface {
	Create(ctx context.Context, creator uuid.UUID, input CreateConversationInput) (models.ConversationDetails, error)
	FindOrCreateDirect(ctx context.Context, user, contactID uuid.UUID) (models.ConversationDetails, error)
	Get(ctx context.Context, id, requester uuid.UUID) (models.ConversationDetails, error)
	ListForUser(ctx context.Context, user uuid.UUID) ([]models.ConversationDetails, error)
	Rename(ctx context.Context, id, requester uuid.UUID, name string) (models.Conversation, error)
	ListParticipants(ctx context.Context, id, requester uuid.UUID) ([]models.Participant, error)
	AddParticipants(ctx context.Context, id, requester uuid.UUID, userIDs []uuid.UUID) ([]models.Participant, error)
	RemoveParticipant(ctx context.Context, id, requester, target uuid.UUID) (bool, error)
	UpdateParticipantRole(ctx context.Context, id, requester, target uuid.UUID, role models.ParticipantRole) (models.Participant, error)
	Leave(ctx context.Context, id, user uuid.UUID) (bool, error)
}

type conversationService struct {
	conversations repositories.ConversationRepository
	contacts      repositories.ContactRepository
	users         repositories.UserRepository
	revoker       SubscriptionRevoker
	logger        *zap.Logger
}

func NewConversationService(
	conversations repositories.ConversationRepository,
	contacts repositories.ContactRepository,
	users repositories.UserRepository,
	revoker SubscriptionRevoker,
	logger *zap.Logger,
) ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if revoker == nil {
		revoker = noopRevoker{}
	}
	return &conversationService{
		conversations: conversations,
		contacts:      contacts,
		users:         users,
		revoker:       revoker,
		logger:        logger,
	}
}

func (s *conversationService) Create(ctx context.Context, creator uuid.UUID, input CreateConversationInput) (models.ConversationDetails, error) {
	members := normalizeParticipants(creator, input.ParticipantIDs)
	invited := members[1:]
	if len(invited) == 0 {
		return models.ConversationDetails{}, apperrors.InvalidOperation("at least one other participant is required")
	}

	for _, id := range invited {
		ok, err := s.contacts.AreAccepted(ctx, creator, id)
		if err != nil {
			return models.ConversationDetails{}, err
		}
		if !ok {
			return models.ConversationDetails{}, apperrors.InvalidOperation("all participants must be your accepted contacts")
		}
	}

	existing, err := s.users.ExistingIDs(ctx, members)
	if err != nil {
		return models.ConversationDetails{}, err
	}
	if len(existing) != len(members) {
		return models.ConversationDetails{}, apperrors.InvalidOperation("one or more participants not found")
	}

	if !input.IsGroup {
		if len(members) != 2 {
			return models.ConversationDetails{}, apperrors.InvalidOperation("a direct conversation has exactly two participants")
		}
		return s.direct(ctx, creator, invited[0], models.RoleAdmin, models.RoleMember)
	}

	name := ""
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if name == "" {
		return models.ConversationDetails{}, apperrors.InvalidOperation("group conversations must have a name")
	}

	participants := make([]models.NewParticipant, 0, len(members))
	participants = append(participants, models.NewParticipant{UserID: creator, Role: models.RoleAdmin})
	for _, id := range invited {
		participants = append(participants, models.NewParticipant{UserID: id, Role: models.RoleMember})
	}

	conv, err := s.conversations.Create(ctx, repositories.NewConversation{Name: &name, IsGroup: true}, participants)
	if err != nil {
		return models.ConversationDetails{}, err
	}
	s.logger.Info("group conversation created",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("creator_id", creator.String()),
		zap.Int("participants", len(participants)),
	)
	return s.details(ctx, conv)
}

func (s *conversationService) FindOrCreateDirect(ctx context.Context, user, contactID uuid.UUID) (models.ConversationDetails, error) {
	if user == contactID {
		return models.ConversationDetails{}, apperrors.InvalidOperation("cannot start a conversation with yourself")
	}
	ok, err := s.contacts.AreAccepted(ctx, user, contactID)
	if err != nil {
		return models.ConversationDetails{}, err
	}
	if !ok {
		return models.ConversationDetails{}, apperrors.Forbidden("you can only message your accepted contacts")
	}
	return s.direct(ctx, user, contactID, models.RoleMember, models.RoleMember)
}

// direct returns the 1:1 conversation of a and b, creating it with the given
// roles when absent. A conversation under the pair's key that no longer holds
// both users is released and replaced. A concurrent creation surfaces as a
// Conflict from the direct_key constraint and resolves to the winner's
// conversation.
func (s *conversationService) direct(ctx context.Context, a, b uuid.UUID, roleA, roleB models.ParticipantRole) (models.ConversationDetails, error) {
	key := models.DirectKey(a, b)

	conv, found, err := s.conversations.FindByDirectKey(ctx, key)
	if err != nil {
		return models.ConversationDetails{}, err
	}
	if found {
		details, err := s.details(ctx, conv)
		if err != nil {
			return models.ConversationDetails{}, err
		}
		if details.HasParticipant(a) && details.HasParticipant(b) {
			return details, nil
		}
		s.logger.Info("releasing stale direct conversation",
			zap.String("conversation_id", conv.ID.String()),
			zap.Int("participants", len(details.Participants)),
		)
		if err := s.conversations.ReleaseDirectKey(ctx, conv.ID); err != nil {
			return models.ConversationDetails{}, err
		}
	}

	conv, err = s.conversations.Create(ctx, repositories.NewConversation{DirectKey: &key}, []models.NewParticipant{
		{UserID: a, Role: roleA},
		{UserID: b, Role: roleB},
	})
	if apperrors.Is(err, apperrors.KindConflict) {
		s.logger.Debug("direct conversation created concurrently", zap.String("direct_key", key))
		conv, found, err = s.conversations.FindByDirectKey(ctx, key)
		if err == nil && !found {
			err = fmt.Errorf("direct conversation %s vanished after conflict", key)
		}
	}
	if err != nil {
		return models.ConversationDetails{}, err
	}
	return s.details(ctx, conv)
}

func (s *conversationService) details(ctx context.Context, conv models.Conversation) (models.ConversationDetails, error) {
	participants, err := s.conversations.ListParticipants(ctx, conv.ID)
	if err != nil {
		return models.ConversationDetails{}, err
	}
	return models.ConversationDetails{Conversation: conv, Participants: participants}, nil
}

func (s *conversationService) Get(ctx context.Context, id, requester uuid.UUID) (models.ConversationDetails, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return models.ConversationDetails{}, err
	}
	details, err := s.details(ctx, conv)
	if err != nil {
		return models.ConversationDetails{}, err
	}
	if !details.HasParticipant(requester) {
		return models.ConversationDetails{}, errNotParticipant()
	}
	return details, nil
}

func (s *conversationService) ListForUser(ctx context.Context, user uuid.UUID) ([]models.ConversationDetails, error) {
	return s.conversations.ListForUser(ctx, user)
}

func (s *conversationService) Rename(ctx context.Context, id, requester uuid.UUID, name string) (models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Conversation{}, apperrors.InvalidOperation("name must not be empty")
	}

	conv, participant, err := s.membership(ctx, id, requester)
	if err != nil {
		return models.Conversation{}, err
	}
	if conv.IsGroup && participant.Role != models.RoleAdmin {
		return models.Conversation{}, apperrors.Forbidden("only admins can rename a group")
	}
	return s.conversations.UpdateName(ctx, id, name)
}

func (s *conversationService) ListParticipants(ctx context.Context, id, requester uuid.UUID) ([]models.Participant, error) {
	if _, _, err := s.membership(ctx, id, requester); err != nil {
		return nil, err
	}
	return s.conversations.ListParticipants(ctx, id)
}

func (s *conversationService) AddParticipants(ctx context.Context, id, requester uuid.UUID, userIDs []uuid.UUID) ([]models.Participant, error) {
	if len(userIDs) == 0 {
		return nil, apperrors.InvalidOperation("no users to add")
	}
	if _, err := s.groupAdmin(ctx, id, requester); err != nil {
		return nil, err
	}

	current, err := s.conversations.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	present := make(map[uuid.UUID]bool, len(current))
	for _, p := range current {
		present[p.UserID] = true
	}

	candidates := make([]uuid.UUID, 0, len(userIDs))
	for _, uid := range userIDs {
		if present[uid] {
			continue
		}
		present[uid] = true
		candidates = append(candidates, uid)
	}

	for _, uid := range candidates {
		ok, err := s.contacts.AreAccepted(ctx, requester, uid)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.InvalidOperation("all new participants must be your accepted contacts")
		}
	}

	if len(candidates) == 0 {
		return current, nil
	}
	if _, err := s.conversations.AddParticipants(ctx, id, candidates, models.RoleMember); err != nil {
		return nil, err
	}
	return s.conversations.ListParticipants(ctx, id)
}

func (s *conversationService) RemoveParticipant(ctx context.Context, id, requester, target uuid.UUID) (bool, error) {
	conv, participant, err := s.membership(ctx, id, requester)
	if err != nil {
		return false, err
	}
	if !conv.IsGroup {
		return false, apperrors.InvalidOperation("cannot remove participants from a direct conversation")
	}
	if requester != target && participant.Role != models.RoleAdmin {
		return false, apperrors.Forbidden("only admins can remove other participants")
	}
	return s.remove(ctx, id, target)
}

func (s *conversationService) UpdateParticipantRole(ctx context.Context, id, requester, target uuid.UUID, role models.ParticipantRole) (models.Participant, error) {
	if !role.Valid() {
		return models.Participant{}, apperrors.InvalidOperation("role must be ADMIN or MEMBER")
	}
	if _, err := s.groupAdmin(ctx, id, requester); err != nil {
		return models.Participant{}, err
	}
	return s.conversations.UpdateParticipantRole(ctx, id, target, role)
}

func (s *conversationService) Leave(ctx context.Context, id, user uuid.UUID) (bool, error) {
	if _, err := s.conversations.GetByID(ctx, id); err != nil {
		return false, err
	}
	return s.remove(ctx, id, user)
}

func (s *conversationService) remove(ctx context.Context, id, target uuid.UUID) (bool, error) {
	deleted, err := s.conversations.RemoveParticipant(ctx, id, target)
	if err != nil {
		return false, err
	}
	s.revoker.RevokeConversation(target, id)
	if deleted {
		s.logger.Info("conversation deleted after last participant left", zap.String("conversation_id", id.String()))
	}
	return deleted, nil
}

// membership loads the conversation and the requester's participation. A
// non-participant gets Forbidden.
func (s *conversationService) membership(ctx context.Context, id, requester uuid.UUID) (models.Conversation, models.Participant, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return models.Conversation{}, models.Participant{}, err
	}
	participant, err := s.conversations.GetParticipant(ctx, id, requester)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return models.Conversation{}, models.Participant{}, errNotParticipant()
	}
	if err != nil {
		return models.Conversation{}, models.Participant{}, err
	}
	return conv, participant, nil
}

func (s *conversationService) groupAdmin(ctx context.Context, id, requester uuid.UUID) (models.Conversation, error) {
	conv, participant, err := s.membership(ctx, id, requester)
	if err != nil {
		return models.Conversation{}, err
	}
	if !conv.IsGroup {
		return models.Conversation{}, apperrors.InvalidOperation("only group conversations support this operation")
	}
	if participant.Role != models.RoleAdmin {
		return models.Conversation{}, apperrors.Forbidden("only admins can manage participants")
	}
	return conv, nil
}

func errNotParticipant() error {
	return apperrors.Forbidden("you are not a participant of this conversation")
}

// normalizeParticipants returns creator followed by the distinct other ids
// in input order.
func normalizeParticipants(creator uuid.UUID, ids []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{creator: true}
	out := []uuid.UUID{creator}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
