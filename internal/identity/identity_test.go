package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"echo-service/internal/apperrors"
	"echo-service/internal/models"
)

const testSecret = "test-secret"

func signHS256(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestJWTVerifierAcceptsValidToken(t *testing.T) {
	v, err := NewJWTVerifier(VerifierConfig{HMACSecret: testSecret, Issuer: "https://idp.example.com"})
	require.NoError(t, err)

	token := signHS256(t, jwt.RegisteredClaims{
		Subject:   "user_2abc",
		Issuer:    "https://idp.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	subject, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", subject)
}

func TestJWTVerifierRejects(t *testing.T) {
	v, err := NewJWTVerifier(VerifierConfig{HMACSecret: testSecret, Issuer: "https://idp.example.com"})
	require.NoError(t, err)

	expired := signHS256(t, jwt.RegisteredClaims{
		Subject:   "user_2abc",
		Issuer:    "https://idp.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	wrongIssuer := signHS256(t, jwt.RegisteredClaims{
		Subject:   "user_2abc",
		Issuer:    "https://evil.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noSubject := signHS256(t, jwt.RegisteredClaims{
		Issuer:    "https://idp.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user_2abc",
		Issuer:    "https://idp.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"alg none":     unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateToken(context.Background(), token)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindUnauthenticated))
		})
	}
}

func TestNewJWTVerifierRequiresKey(t *testing.T) {
	_, err := NewJWTVerifier(VerifierConfig{})
	require.Error(t, err)

	_, err = NewJWTVerifier(VerifierConfig{RSAPublicKeyPEM: "not a pem"})
	require.Error(t, err)
}

func TestHTTPProfileFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/user_2abc", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "user_2abc",
			"username": "ada",
			"first_name": "Ada",
			"last_name": null,
			"image_url": "https://img.example.com/ada.png",
			"primary_email_address_id": "idn_2",
			"email_addresses": [
				{"id": "idn_1", "email_address": "old@example.com"},
				{"id": "idn_2", "email_address": "ada@example.com"}
			]
		}`))
	}))
	defer srv.Close()

	f := NewHTTPProfileFetcher(srv.URL+"/", "sk_test", time.Second)
	profile, err := f.FetchProfile(context.Background(), "user_2abc")
	require.NoError(t, err)
	assert.Equal(t, models.ExternalProfile{
		ExternalID: "user_2abc",
		Email:      "ada@example.com",
		Username:   "ada",
		FirstName:  "Ada",
		ImageURL:   "https://img.example.com/ada.png",
	}, profile)
}

func TestHTTPProfileFetcherUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPProfileFetcher(srv.URL, "sk_test", time.Second).FetchProfile(context.Background(), "user_2abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestPrimaryEmailFallsBackToFirst(t *testing.T) {
	u := ProviderUser{EmailAddresses: []EmailAddress{{ID: "a", EmailAddress: "first@example.com"}}}
	assert.Equal(t, "first@example.com", u.PrimaryEmail())
	assert.Equal(t, "", ProviderUser{}.PrimaryEmail())
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchProfile(ctx context.Context, subject string) (models.ExternalProfile, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(models.ExternalProfile), args.Error(1)
}

func TestCachedProfileFetcherCachesUntilTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	profile := models.ExternalProfile{ExternalID: "user_2abc", Email: "ada@example.com"}
	next := &mockFetcher{}
	next.On("FetchProfile", mock.Anything, "user_2abc").Return(profile, nil).Twice()

	f := NewCachedProfileFetcher(next, client, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := f.FetchProfile(ctx, "user_2abc")
		require.NoError(t, err)
		assert.Equal(t, profile, got)
	}
	next.AssertNumberOfCalls(t, "FetchProfile", 1)

	mr.FastForward(2 * time.Minute)
	_, err := f.FetchProfile(ctx, "user_2abc")
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "FetchProfile", 2)
	next.AssertExpectations(t)
}

func TestCachedProfileFetcherDoesNotCacheErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	next := &mockFetcher{}
	next.On("FetchProfile", mock.Anything, "user_2abc").Return(models.ExternalProfile{}, errors.New("timeout"))

	f := NewCachedProfileFetcher(next, client, time.Minute, nil)
	_, err := f.FetchProfile(context.Background(), "user_2abc")
	require.Error(t, err)
	assert.False(t, mr.Exists(profileCachePrefix+"user_2abc"))
}

func TestCachedProfileFetcherInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	require.NoError(t, mr.Set(profileCachePrefix+"user_2abc", `{"external_id":"user_2abc"}`))
	f := NewCachedProfileFetcher(&mockFetcher{}, client, time.Minute, nil)
	require.NoError(t, f.Invalidate(context.Background(), "user_2abc"))
	assert.False(t, mr.Exists(profileCachePrefix+"user_2abc"))
}
