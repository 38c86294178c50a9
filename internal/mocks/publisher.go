package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"echo-service/internal/identity"
	"echo-service/internal/models"
	"echo-service/internal/realtime"
	"echo-service/internal/services"
	"echo-service/internal/telemetry"
)

type PublisherMock struct {
	mock.Mock
}

var _ telemetry.Publisher = (*PublisherMock)(nil)

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

var _ realtime.Notifier = (*NotifierMock)(nil)

func (m *NotifierMock) Notify(ctx context.Context, channel, event string, payload any) {
	m.Called(ctx, channel, event, payload)
}

type VerifierMock struct {
	mock.Mock
}

var _ identity.Verifier = (*VerifierMock)(nil)

func (m *VerifierMock) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type ProfileFetcherMock struct {
	mock.Mock
}

var _ identity.ProfileFetcher = (*ProfileFetcherMock)(nil)

func (m *ProfileFetcherMock) FetchProfile(ctx context.Context, subject string) (models.ExternalProfile, error) {
	args := m.Called(ctx, subject)
	var profile models.ExternalProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.ExternalProfile)
	}
	return profile, args.Error(1)
}

type SubscriptionRevokerMock struct {
	mock.Mock
}

var _ services.SubscriptionRevoker = (*SubscriptionRevokerMock)(nil)

func (m *SubscriptionRevokerMock) RevokeConversation(userID, conversationID uuid.UUID) {
	m.Called(userID, conversationID)
}

func (m *SubscriptionRevokerMock) RevokeUser(userID uuid.UUID) {
	m.Called(userID)
}
