package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"echo-service/internal/observability"
)

const defaultPublishTimeout = 5 * time.Second

// Fanout dispatches every notification to all transports in the
// background. A failing transport is logged and counted and never affects
// the caller or the other transports.
type Fanout struct {
	publishers []Publisher
	timeout    time.Duration
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewFanout(logger *zap.Logger, timeout time.Duration, publishers ...Publisher) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Fanout{publishers: publishers, timeout: timeout, logger: logger}
}

// Notify returns immediately. The request context only contributes its
// values; cancellation of the request does not abort the publish.
func (f *Fanout) Notify(ctx context.Context, channel, event string, payload any) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.logger.Warn("fanout closed, dropping event", zap.String("channel", channel), zap.String("event", event))
		return
	}

	detached := context.WithoutCancel(ctx)
	for _, p := range f.publishers {
		f.wg.Add(1)
		go f.publish(detached, p, channel, event, payload)
	}
}

func (f *Fanout) publish(ctx context.Context, p Publisher, channel, event string, payload any) {
	defer f.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			observability.IncFanoutPublishError(p.Name(), event)
			f.logger.Error("fanout publish panicked",
				zap.String("transport", p.Name()),
				zap.String("channel", channel),
				zap.String("event", event),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := p.Publish(ctx, channel, event, payload); err != nil {
		observability.IncFanoutPublishError(p.Name(), event)
		f.logger.Warn("fanout publish failed",
			zap.String("transport", p.Name()),
			zap.String("channel", channel),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	observability.IncFanoutPublished(p.Name(), event)
}

// Close stops accepting events and waits for in-flight publishes until ctx
// is done.
func (f *Fanout) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transports lists the configured transport names.
func (f *Fanout) Transports() []string {
	names := make([]string, 0, len(f.publishers))
	for _, p := range f.publishers {
		names = append(names, p.Name())
	}
	return names
}
