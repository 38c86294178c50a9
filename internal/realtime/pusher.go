package realtime

import (
	"context"
	"net/url"

	"github.com/pusher/pusher-http-go/v5"
)

type pusherClient interface {
	Trigger(channel string, eventName string, data interface{}) error
	AuthorizePrivateChannel(params []byte) ([]byte, error)
	AuthorizePresenceChannel(params []byte, member pusher.MemberData) ([]byte, error)
}

// PusherPublisher triggers events on a hosted Pusher app and signs
// private and presence subscriptions for its clients.
type PusherPublisher struct {
	client pusherClient
}

type PusherConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
}

func NewPusherPublisher(cfg PusherConfig) *PusherPublisher {
	return &PusherPublisher{client: &pusher.Client{
		AppID:   cfg.AppID,
		Key:     cfg.Key,
		Secret:  cfg.Secret,
		Cluster: cfg.Cluster,
		Secure:  true,
	}}
}

func (p *PusherPublisher) Name() string { return "pusher" }

// Publish ignores ctx; the Pusher client has no context support.
func (p *PusherPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	return p.client.Trigger(channel, event, payload)
}

// SignSubscription returns the auth response the Pusher client library
// expects for socketID joining channel. member is required for presence
// channels and ignored otherwise.
func (p *PusherPublisher) SignSubscription(socketID, channel string, member *PresenceMember) ([]byte, error) {
	params := []byte(url.Values{
		"socket_id":    {socketID},
		"channel_name": {channel},
	}.Encode())

	if member == nil {
		return p.client.AuthorizePrivateChannel(params)
	}
	return p.client.AuthorizePresenceChannel(params, pusher.MemberData{
		UserID:   member.UserID,
		UserInfo: member.Info,
	})
}
