package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"echo-service/internal/apperrors"
	"echo-service/internal/identity"
	"echo-service/internal/services"
)

type webhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

// WebhookHandler applies identity provider user lifecycle events.
type WebhookHandler struct {
	auditor
	users    services.UserService
	verifier webhookVerifier
	logger   *zap.Logger
}

// NewWebhookHandler builds a WebhookHandler. An empty signingSecret leaves
// the endpoint rejecting every delivery.
func NewWebhookHandler(users services.UserService, signingSecret string, logger *zap.Logger) (*WebhookHandler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WebhookHandler{users: users, logger: logger}
	if signingSecret != "" {
		wh, err := svix.NewWebhook(signingSecret)
		if err != nil {
			return nil, err
		}
		h.verifier = wh
	}
	return h, nil
}

type webhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	if h.verifier == nil {
		h.logger.Error("identity webhook received without signing secret")
		fail(c, apperrors.InvalidOperation("webhook secret not configured"))
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		fail(c, apperrors.InvalidOperation("invalid request payload"))
		return
	}
	if err := h.verifier.Verify(payload, c.Request.Header); err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		fail(c, apperrors.InvalidOperation("invalid webhook signature"))
		return
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		fail(c, apperrors.InvalidOperation("invalid webhook payload"))
		return
	}

	h.logger.Info("webhook received", zap.String("type", evt.Type))
	if err := h.apply(c, evt); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WebhookHandler) apply(c *gin.Context, evt webhookEvent) error {
	ctx := c.Request.Context()
	switch evt.Type {
	case "user.created", "user.updated":
		var user identity.ProviderUser
		if err := json.Unmarshal(evt.Data, &user); err != nil || user.ID == "" {
			return apperrors.InvalidOperation("invalid user payload")
		}
		if evt.Type == "user.created" {
			_, err := h.users.SyncCreated(ctx, user.Profile())
			return err
		}
		_, err := h.users.SyncUpdated(ctx, user.Profile())
		if apperrors.Is(err, apperrors.KindNotFound) {
			h.logger.Warn("update for unknown user ignored", zap.String("external_id", user.ID))
			return nil
		}
		return err
	case "user.deleted":
		var deleted struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(evt.Data, &deleted); err != nil || deleted.ID == "" {
			return apperrors.InvalidOperation("invalid user payload")
		}
		err := h.users.Deprovision(ctx, deleted.ID)
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil
		}
		if err == nil {
			h.emitAudit(c, "INFO", "User deprovisioned")
		}
		return err
	default:
		h.logger.Warn("unhandled webhook event type", zap.String("type", evt.Type))
		return nil
	}
}
