package realtime

import "context"

// Broker is a topic exchange publisher.
type Broker interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// AMQPPublisher forwards events to a topic exchange so that other
// processes can relay them. The routing key is "realtime.<channel>".
type AMQPPublisher struct {
	broker Broker
}

func NewAMQPPublisher(broker Broker) *AMQPPublisher {
	return &AMQPPublisher{broker: broker}
}

func (p *AMQPPublisher) Name() string { return "amqp" }

func (p *AMQPPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	return p.broker.Publish(ctx, "realtime."+channel, Envelope{Channel: channel, Event: event, Data: payload})
}
