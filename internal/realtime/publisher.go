package realtime

import "context"

// Publisher delivers one event to every subscriber of a channel on a single
// transport. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
	Name() string
}

// Notifier is the fanout capability handed to services. It never reports
// failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, channel, event string, payload any)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(ctx context.Context, channel, event string, payload any) error { return nil }

func (Noop) Name() string { return "noop" }
