package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"echo-service/internal/models"
	"echo-service/internal/realtime"
	"echo-service/internal/repositories"
)

// PresenceService tracks online state and tells accepted contacts about
// changes on their private channels.
type PresenceService interface {
	SetOnline(ctx context.Context, user uuid.UUID) (models.PresenceStatus, error)
	SetOffline(ctx context.Context, user uuid.UUID) (models.PresenceStatus, error)
	Heartbeat(ctx context.Context, user uuid.UUID) error
	ListContactsStatus(ctx context.Context, user uuid.UUID) ([]models.PresenceStatus, error)
}

type presenceService struct {
	users    repositories.UserRepository
	contacts repositories.ContactRepository
	notifier realtime.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewPresenceService(users repositories.UserRepository, contacts repositories.ContactRepository, notifier realtime.Notifier, logger *zap.Logger) PresenceService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &presenceService{
		users:    users,
		contacts: contacts,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *presenceService) SetOnline(ctx context.Context, user uuid.UUID) (models.PresenceStatus, error) {
	return s.set(ctx, user, true)
}

func (s *presenceService) SetOffline(ctx context.Context, user uuid.UUID) (models.PresenceStatus, error) {
	return s.set(ctx, user, false)
}

func (s *presenceService) set(ctx context.Context, user uuid.UUID, online bool) (models.PresenceStatus, error) {
	status, err := s.users.SetPresence(ctx, user, online, s.now())
	if err != nil {
		return models.PresenceStatus{}, err
	}

	contacts, err := s.contacts.AcceptedContactIDs(ctx, user)
	if err != nil {
		s.logger.Warn("presence fanout skipped", zap.String("user_id", user.String()), zap.Error(err))
		return status, nil
	}
	for _, contact := range contacts {
		s.notifier.Notify(ctx, realtime.UserChannel(contact), realtime.EventContactStatusChanged, status)
	}
	return status, nil
}

// Heartbeat only refreshes last_seen_at; contacts are not notified.
func (s *presenceService) Heartbeat(ctx context.Context, user uuid.UUID) error {
	return s.users.TouchLastSeen(ctx, user, s.now())
}

func (s *presenceService) ListContactsStatus(ctx context.Context, user uuid.UUID) ([]models.PresenceStatus, error) {
	contacts, err := s.contacts.AcceptedContactIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.users.ListPresence(ctx, contacts)
}
