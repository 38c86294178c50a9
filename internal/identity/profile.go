package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"echo-service/internal/models"
)

// ProfileFetcher loads the current profile of a subject from the provider.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, subject string) (models.ExternalProfile, error)
}

// ProviderUser is the user object of the identity provider's API and of its
// webhook payloads.
type ProviderUser struct {
	ID                    string         `json:"id"`
	Username              *string        `json:"username"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// PrimaryEmail returns the primary address, falling back to the first one.
func (u ProviderUser) PrimaryEmail() string {
	if u.PrimaryEmailAddressID != nil {
		for _, e := range u.EmailAddresses {
			if e.ID == *u.PrimaryEmailAddressID {
				return e.EmailAddress
			}
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (u ProviderUser) Profile() models.ExternalProfile {
	return models.ExternalProfile{
		ExternalID: u.ID,
		Email:      u.PrimaryEmail(),
		Username:   strOrEmpty(u.Username),
		FirstName:  strOrEmpty(u.FirstName),
		LastName:   strOrEmpty(u.LastName),
		ImageURL:   u.ImageURL,
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// HTTPProfileFetcher calls GET {baseURL}/v1/users/{subject} with the
// provider secret key.
type HTTPProfileFetcher struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewHTTPProfileFetcher(baseURL, secretKey string, timeout time.Duration) *HTTPProfileFetcher {
	return &HTTPProfileFetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

func (f *HTTPProfileFetcher) FetchProfile(ctx context.Context, subject string) (models.ExternalProfile, error) {
	endpoint := f.baseURL + "/v1/users/" + url.PathEscape(subject)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.ExternalProfile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+f.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.ExternalProfile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ExternalProfile{}, fmt.Errorf("fetch profile: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user ProviderUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return models.ExternalProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	if user.ID == "" {
		user.ID = subject
	}
	return user.Profile(), nil
}
