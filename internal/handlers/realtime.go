package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"echo-service/internal/apperrors"
	"echo-service/internal/middleware"
	"echo-service/internal/realtime"
)

// SubscriptionSigner produces the signed auth payload a hosted realtime
// client library expects.
type SubscriptionSigner interface {
	SignSubscription(socketID, channel string, member *realtime.PresenceMember) ([]byte, error)
}

// RealtimeHandler authorizes channel subscriptions.
type RealtimeHandler struct {
	authorizer *realtime.Authorizer
	signer     SubscriptionSigner
	logger     *zap.Logger
}

// NewRealtimeHandler builds a RealtimeHandler. signer may be nil when no
// hosted transport is configured; grants are then returned unsigned.
func NewRealtimeHandler(authorizer *realtime.Authorizer, signer SubscriptionSigner, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{authorizer: authorizer, signer: signer, logger: logger}
}

type channelAuthRequest struct {
	SocketID    string `form:"socket_id" json:"socket_id"`
	ChannelName string `form:"channel_name" json:"channel_name" binding:"required"`
}

func (h *RealtimeHandler) Authorize(c *gin.Context) {
	var req channelAuthRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, apperrors.InvalidOperation("channel_name is required"))
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, apperrors.Unauthenticated("authentication required"))
		return
	}

	grant, err := h.authorizer.Authorize(c.Request.Context(), user, req.ChannelName)
	if err != nil {
		h.logger.Debug("channel authorization denied",
			zap.String("channel", req.ChannelName),
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		fail(c, err)
		return
	}

	if h.signer == nil {
		c.JSON(http.StatusOK, gin.H{"channel": grant.Channel, "member": grant.Member})
		return
	}
	if req.SocketID == "" {
		fail(c, apperrors.InvalidOperation("socket_id is required"))
		return
	}
	signed, err := h.signer.SignSubscription(req.SocketID, grant.Channel, grant.Member)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", signed)
}
