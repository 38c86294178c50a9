package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"echo-service/internal/observability"
	"echo-service/internal/realtime"
)

// Hub tracks websocket clients by user and by subscribed channel, and
// delivers fanout events to them. It is the "websocket" realtime transport.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]struct{}
	users    map[uuid.UUID]map[*Client]struct{}
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		channels: make(map[string]map[*Client]struct{}),
		users:    make(map[uuid.UUID]map[*Client]struct{}),
		logger:   logger,
	}
}

var _ realtime.Publisher = (*Hub)(nil)

func (h *Hub) Name() string { return "websocket" }

// Register adds c and reports whether it is the user's first connection.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.users[c.info.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.users[c.info.UserID] = conns
	}
	conns[c] = struct{}{}
	return len(conns) == 1
}

// Unregister drops c from every channel and reports whether it was the
// user's last connection. Unregistering twice is a no-op returning false.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel := range c.channels {
		h.removeLocked(channel, c)
	}
	conns, ok := h.users[c.info.UserID]
	if !ok {
		return false
	}
	if _, present := conns[c]; !present {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.users, c.info.UserID)
		return true
	}
	return false
}

func (h *Hub) Subscribe(channel string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.channels[channel]
	if !ok {
		subs = make(map[*Client]struct{})
		h.channels[channel] = subs
	}
	subs[c] = struct{}{}
	c.channels[channel] = struct{}{}
}

func (h *Hub) Unsubscribe(channel string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(channel, c)
}

func (h *Hub) removeLocked(channel string, c *Client) {
	delete(c.channels, channel)
	if subs, ok := h.channels[channel]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// RevokeConversation unsubscribes every connection of userID from the
// conversation's channel and notifies them with a subscription_revoked frame.
func (h *Hub) RevokeConversation(userID, conversationID uuid.UUID) {
	channel := realtime.ConversationChannel(conversationID)

	h.mu.Lock()
	var revoked []*Client
	for c := range h.users[userID] {
		if _, ok := c.channels[channel]; ok {
			h.removeLocked(channel, c)
			revoked = append(revoked, c)
		}
	}
	h.mu.Unlock()

	if len(revoked) == 0 {
		return
	}
	frame, err := json.Marshal(realtime.Envelope{Channel: channel, Event: eventSubscriptionRevoked})
	if err != nil {
		return
	}
	for _, c := range revoked {
		_ = c.write(frame)
		observability.IncWSEvent("subscription_revoked")
	}
	h.logger.Info("conversation subscription revoked",
		zap.String("user_id", userID.String()),
		zap.String("channel", channel),
		zap.Int("connections", len(revoked)),
	)
}

// RevokeUser drops every subscription of userID and closes its connections.
// The read loops then unregister them.
func (h *Hub) RevokeUser(userID uuid.UUID) {
	h.mu.Lock()
	conns := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		for channel := range c.channels {
			h.removeLocked(channel, c)
		}
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.close()
	}
	if len(conns) > 0 {
		h.logger.Info("user connections revoked", zap.String("user_id", userID.String()), zap.Int("connections", len(conns)))
	}
}

// Subscribers returns the number of clients on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Publish writes the event to every subscriber of channel. Clients that
// fail to accept the frame are closed and dropped; that never fails the
// publish.
func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) error {
	frame, err := json.Marshal(realtime.Envelope{Channel: channel, Event: event, Data: payload})
	if err != nil {
		return err
	}

	h.mu.RLock()
	subs := make([]*Client, 0, len(h.channels[channel]))
	for c := range h.channels[channel] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	for _, c := range subs {
		if err := c.write(frame); err != nil {
			h.logger.Warn("websocket write failed",
				zap.String("conn_id", c.info.ConnID),
				zap.String("user_id", c.info.UserID.String()),
				zap.String("channel", channel),
				zap.Error(err),
			)
			observability.IncWSEvent("ws_error")
			_ = c.close()
			h.Unsubscribe(channel, c)
		}
	}
	return nil
}
