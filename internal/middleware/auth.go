package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"echo-service/internal/apperrors"
	"echo-service/internal/identity"
	"echo-service/internal/models"
	"echo-service/internal/services"
)

const (
	userIDKey = "userID"
	userKey   = "user"
)

// Authenticator verifies bearer credentials and provisions the caller on
// every request. It is the only provisioning path.
type Authenticator struct {
	verifier identity.Verifier
	users    services.UserService
	logger   *zap.Logger
}

func NewAuthenticator(verifier identity.Verifier, users services.UserService, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{verifier: verifier, users: users, logger: logger}
}

// Authenticate resolves token into a freshly upserted local user.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (models.User, error) {
	subject, err := a.verifier.ValidateToken(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	return a.users.Provision(ctx, subject)
}

// RequireAuth validates the Authorization header and stores the caller in
// the gin context.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, apperrors.Unauthenticated("missing or invalid authorization header"))
			return
		}

		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if apperrors.Is(err, apperrors.KindUnauthenticated) {
				a.logger.Debug("authentication failed", zap.Error(err))
			}
			abortWithError(c, err)
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// BearerToken extracts the token of a "Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func SetUser(c *gin.Context, user models.User) {
	c.Set(userIDKey, user.ID)
	c.Set(userKey, user)
}

// UserID returns the authenticated caller's id, or uuid.Nil.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// CurrentUser returns the authenticated caller.
func CurrentUser(c *gin.Context) (models.User, bool) {
	if v, ok := c.Get(userKey); ok {
		user, ok := v.(models.User)
		return user, ok
	}
	return models.User{}, false
}
