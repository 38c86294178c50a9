package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"echo-service/internal/apperrors"
	"echo-service/internal/identity"
	"echo-service/internal/models"
	"echo-service/internal/observability"
	"echo-service/internal/repositories"
)

const searchLimit = 10

// ProfileInvalidator drops cached provider profiles.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, subject string) error
}

// UserService provisions users from the identity provider and serves
// profile queries.
type UserService interface {
	// Provision fetches the subject's profile and upserts the local user,
	// marking it online. It runs on every authenticated request.
	Provision(ctx context.Context, subject string) (models.User, error)
	SyncCreated(ctx context.Context, profile models.ExternalProfile) (models.User, error)
	SyncUpdated(ctx context.Context, profile models.ExternalProfile) (models.User, error)
	Deprovision(ctx context.Context, externalID string) error
	Get(ctx context.Context, id uuid.UUID) (models.User, error)
	List(ctx context.Context, requester uuid.UUID) ([]models.User, error)
	Search(ctx context.Context, requester uuid.UUID, query string) ([]models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (models.User, error)
}

type userService struct {
	users   repositories.UserRepository
	fetcher identity.ProfileFetcher
	cache   ProfileInvalidator
	revoker SubscriptionRevoker
	logger  *zap.Logger
	now     func() time.Time
}

func NewUserService(users repositories.UserRepository, fetcher identity.ProfileFetcher, cache ProfileInvalidator, revoker SubscriptionRevoker, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if revoker == nil {
		revoker = noopRevoker{}
	}
	return &userService{
		users:   users,
		fetcher: fetcher,
		cache:   cache,
		revoker: revoker,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *userService) Provision(ctx context.Context, subject string) (models.User, error) {
	if subject == "" {
		return models.User{}, apperrors.Unauthenticated("missing subject")
	}

	profile, err := s.fetcher.FetchProfile(ctx, subject)
	if err != nil {
		observability.IncProvisioning("fetch_failed")
		s.logger.Warn("profile fetch failed", zap.String("subject", subject), zap.Error(err))
		return models.User{}, apperrors.ProvisioningFailed("identity provider unavailable, retry later", err)
	}
	profile.ExternalID = subject

	user, err := s.users.Upsert(ctx, profile, true, s.now())
	if err != nil {
		observability.IncProvisioning("store_failed")
		return models.User{}, fmt.Errorf("upsert user: %w", err)
	}
	observability.IncProvisioning("ok")
	return user, nil
}

func (s *userService) SyncCreated(ctx context.Context, profile models.ExternalProfile) (models.User, error) {
	if profile.ExternalID == "" {
		return models.User{}, apperrors.InvalidOperation("profile has no id")
	}
	user, err := s.users.Upsert(ctx, profile, false, s.now())
	if err != nil {
		return models.User{}, fmt.Errorf("upsert user: %w", err)
	}
	s.logger.Info("user provisioned from provider event", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *userService) SyncUpdated(ctx context.Context, profile models.ExternalProfile) (models.User, error) {
	if profile.ExternalID == "" {
		return models.User{}, apperrors.InvalidOperation("profile has no id")
	}
	s.invalidate(ctx, profile.ExternalID)
	return s.users.UpdateByExternalID(ctx, profile)
}

func (s *userService) Deprovision(ctx context.Context, externalID string) error {
	if externalID == "" {
		return apperrors.InvalidOperation("profile has no id")
	}
	s.invalidate(ctx, externalID)
	id, err := s.users.DeleteByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	s.revoker.RevokeUser(id)
	s.logger.Info("user deprovisioned", zap.String("user_id", id.String()))
	return nil
}

func (s *userService) invalidate(ctx context.Context, subject string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, subject); err != nil {
		s.logger.Warn("profile cache invalidation failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *userService) List(ctx context.Context, requester uuid.UUID) ([]models.User, error) {
	return s.users.ListExcept(ctx, requester)
}

func (s *userService) Search(ctx context.Context, requester uuid.UUID, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}
	return s.users.Search(ctx, query, requester, searchLimit)
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (models.User, error) {
	for _, field := range []*string{update.FirstName, update.LastName} {
		if field != nil && strings.TrimSpace(*field) == "" {
			return models.User{}, apperrors.InvalidOperation("names must not be empty")
		}
	}
	return s.users.UpdateProfile(ctx, id, update)
}
