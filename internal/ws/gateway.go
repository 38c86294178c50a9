package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"echo-service/internal/apperrors"
	"echo-service/internal/middleware"
	"echo-service/internal/models"
	"echo-service/internal/observability"
	"echo-service/internal/realtime"
)

const (
	readLimit = 4096
	readWait  = 75 * time.Second

	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	actionPing        = "ping"

	eventSubscribed          = "subscription_succeeded"
	eventSubscriptionError   = "subscription_error"
	eventSubscriptionRevoked = "subscription_revoked"
	eventPong                = "pong"
	eventError               = "error"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

type ChannelAuthorizer interface {
	Authorize(ctx context.Context, user models.User, channel string) (realtime.Grant, error)
}

type PresenceTracker interface {
	SetOnline(ctx context.Context, userID uuid.UUID) (models.PresenceStatus, error)
	SetOffline(ctx context.Context, userID uuid.UUID) (models.PresenceStatus, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
}

// clientFrame is a message sent by a websocket client.
type clientFrame struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// Gateway upgrades authenticated clients and serves channel subscriptions
// over the connection. A user goes online with their first connection and
// offline when the last one closes.
type Gateway struct {
	hub        *Hub
	auth       Authenticator
	authorizer ChannelAuthorizer
	presence   PresenceTracker
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

func NewGateway(hub *Hub, auth Authenticator, authorizer ChannelAuthorizer, presence PresenceTracker, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		hub:        hub,
		auth:       auth,
		authorizer: authorizer,
		presence:   presence,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle authenticates with the Authorization header or the token query
// parameter, then upgrades.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("echo-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		g.reject(c, apperrors.Unauthenticated("missing token"))
		return
	}

	user, err := g.auth.Authenticate(ctx, token)
	if err != nil {
		g.reject(c, err)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, ConnInfo{
		UserID:      user.ID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	})

	// The connection outlives the handshake request.
	connCtx := context.WithoutCancel(ctx)
	if g.hub.Register(client) {
		g.setOnline(connCtx, user.ID)
	}
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	g.logger.Info("websocket connected",
		zap.String("conn_id", client.info.ConnID),
		zap.String("user_id", user.ID.String()),
		zap.String("ip", client.info.IP),
	)

	go g.readLoop(connCtx, conn, client, user)
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, user models.User) {
	var closeReason string
	defer func() {
		if g.hub.Unregister(client) {
			g.setOffline(ctx, user.ID)
		}
		_ = client.close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		g.logger.Info("websocket disconnected",
			zap.String("conn_id", client.info.ConnID),
			zap.String("user_id", user.ID.String()),
			zap.Duration("duration", time.Since(client.info.ConnectedAt)),
			zap.String("reason", closeReason),
		)
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		g.handleFrame(ctx, client, user, data)
	}
}

func (g *Gateway) handleFrame(ctx context.Context, client *Client, user models.User, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		g.reply(client, realtime.Envelope{Event: eventError, Data: gin.H{"error": "invalid frame"}})
		return
	}

	switch frame.Action {
	case actionSubscribe:
		grant, err := g.authorizer.Authorize(ctx, user, frame.Channel)
		if err != nil {
			g.reply(client, realtime.Envelope{
				Channel: frame.Channel,
				Event:   eventSubscriptionError,
				Data:    gin.H{"error": apperrors.PublicMessage(err), "code": apperrors.KindOf(err)},
			})
			return
		}
		g.hub.Subscribe(grant.Channel, client)
		g.reply(client, realtime.Envelope{Channel: grant.Channel, Event: eventSubscribed, Data: grant.Member})
	case actionUnsubscribe:
		g.hub.Unsubscribe(frame.Channel, client)
	case actionPing:
		if err := g.presence.Heartbeat(ctx, user.ID); err != nil {
			g.logger.Warn("heartbeat failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		g.reply(client, realtime.Envelope{Event: eventPong})
	default:
		g.reply(client, realtime.Envelope{Event: eventError, Data: gin.H{"error": "unknown action"}})
	}
}

func (g *Gateway) reply(client *Client, env realtime.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := client.write(payload); err != nil {
		g.logger.Debug("websocket reply failed", zap.String("conn_id", client.info.ConnID), zap.Error(err))
	}
}

func (g *Gateway) reject(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperrors.HTTPStatusFromError(err), gin.H{
		"error": apperrors.PublicMessage(err),
		"code":  apperrors.KindOf(err),
	})
}

func (g *Gateway) setOnline(ctx context.Context, userID uuid.UUID) {
	if _, err := g.presence.SetOnline(ctx, userID); err != nil {
		g.logger.Warn("presence online failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (g *Gateway) setOffline(ctx context.Context, userID uuid.UUID) {
	if _, err := g.presence.SetOffline(ctx, userID); err != nil {
		g.logger.Warn("presence offline failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
