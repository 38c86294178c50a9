package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo-service/internal/realtime"
)

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	writeErr error
	closed   bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) envelopes(t *testing.T) []realtime.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]realtime.Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env realtime.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

func TestHubRegisterTracksFirstAndLastConnection(t *testing.T) {
	hub := NewHub(nil)
	userID := uuid.New()
	a := NewClient(&fakeConn{}, ConnInfo{UserID: userID})
	b := NewClient(&fakeConn{}, ConnInfo{UserID: userID})

	assert.True(t, hub.Register(a))
	assert.False(t, hub.Register(b))
	assert.Equal(t, 2, hub.Connections(userID))

	assert.False(t, hub.Unregister(a))
	assert.True(t, hub.Unregister(b))
	assert.False(t, hub.Unregister(b))
	assert.Equal(t, 0, hub.Connections(userID))
}

func TestHubSubscribeAndUnregisterCleansChannels(t *testing.T) {
	hub := NewHub(nil)
	client := NewClient(&fakeConn{}, ConnInfo{UserID: uuid.New()})
	hub.Register(client)

	channel := realtime.ConversationChannel(uuid.New())
	hub.Subscribe(channel, client)
	require.Equal(t, 1, hub.Subscribers(channel))

	hub.Unregister(client)
	assert.Equal(t, 0, hub.Subscribers(channel))
	assert.Empty(t, hub.channels)
}

func TestHubPublishDeliversToSubscribersOnly(t *testing.T) {
	hub := NewHub(nil)
	channel := realtime.ConversationChannel(uuid.New())

	subConn, otherConn := &fakeConn{}, &fakeConn{}
	sub := NewClient(subConn, ConnInfo{UserID: uuid.New()})
	other := NewClient(otherConn, ConnInfo{UserID: uuid.New()})
	hub.Register(sub)
	hub.Register(other)
	hub.Subscribe(channel, sub)

	require.NoError(t, hub.Publish(context.Background(), channel, realtime.EventNewMessage, map[string]string{"content": "hi"}))

	envs := subConn.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, channel, envs[0].Channel)
	assert.Equal(t, realtime.EventNewMessage, envs[0].Event)
	assert.Empty(t, otherConn.envelopes(t))
}

func TestHubPublishDropsBrokenClient(t *testing.T) {
	hub := NewHub(nil)
	channel := realtime.UserChannel(uuid.New())

	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	healthy := &fakeConn{}
	b := NewClient(broken, ConnInfo{UserID: uuid.New()})
	h := NewClient(healthy, ConnInfo{UserID: uuid.New()})
	hub.Subscribe(channel, b)
	hub.Subscribe(channel, h)

	require.NoError(t, hub.Publish(context.Background(), channel, realtime.EventContactStatusChanged, nil))

	assert.True(t, broken.closed)
	assert.Equal(t, 1, hub.Subscribers(channel))
	assert.Len(t, healthy.envelopes(t), 1)
}

func TestHubName(t *testing.T) {
	assert.Equal(t, "websocket", NewHub(nil).Name())
}

func TestHubRevokeConversationOnlyTouchesThatUser(t *testing.T) {
	hub := NewHub(nil)
	convID := uuid.New()
	channel := realtime.ConversationChannel(convID)
	removedConn, stayingConn := &fakeConn{}, &fakeConn{}
	removed := NewClient(removedConn, ConnInfo{UserID: uuid.New()})
	staying := NewClient(stayingConn, ConnInfo{UserID: uuid.New()})
	hub.Register(removed)
	hub.Register(staying)
	hub.Subscribe(channel, removed)
	hub.Subscribe(channel, staying)

	hub.RevokeConversation(removed.Info().UserID, convID)
	require.NoError(t, hub.Publish(context.Background(), channel, realtime.EventNewMessage, "hi"))

	got := removedConn.envelopes(t)
	require.Len(t, got, 1)
	assert.Equal(t, eventSubscriptionRevoked, got[0].Event)
	assert.Empty(t, removed.channels)

	kept := stayingConn.envelopes(t)
	require.Len(t, kept, 1)
	assert.Equal(t, realtime.EventNewMessage, kept[0].Event)
}

func TestHubRevokeConversationWithoutSubscriptionIsSilent(t *testing.T) {
	hub := NewHub(nil)
	conn := &fakeConn{}
	client := NewClient(conn, ConnInfo{UserID: uuid.New()})
	hub.Register(client)

	hub.RevokeConversation(client.Info().UserID, uuid.New())

	assert.Empty(t, conn.envelopes(t))
}
