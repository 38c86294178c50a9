package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes events with PUBLISH on a redis channel of the
// same name.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	body, err := json.Marshal(Envelope{Channel: channel, Event: event, Data: payload})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channel, body).Err()
}
