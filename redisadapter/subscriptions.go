package redisadapter

import (
	"context"
	"sync"

	"github.com/nickguo/socket.io-redis/bus"
	"github.com/nickguo/socket.io-redis/metrics"
	"github.com/nickguo/socket.io-redis/pkg/events"
)

// messageHandler is the single demultiplexing entry point every
// inbound message is funneled through, regardless of which channel it
// arrived on. The caller routes by channel to either the broadcast
// inbound path (C5) or a per-query response accumulator (C6).
type messageHandler func(channel string, payload []byte)

// subscriptionManager wraps a Bus with reference counting, guaranteeing
// at most one live bus subscription per channel regardless of how many
// local rooms or queries want to watch it. Concurrent acquires on the
// same channel share the in-flight SUBSCRIBE call instead of issuing
// one each; only the first acquirer's pump goroutine ever reads the
// resulting message stream, so a channel delivers to handle exactly
// once per message no matter how many local holders share it.
type subscriptionManager struct {
	events.EventEmitter

	bus     bus.Bus
	handle  messageHandler
	rootCtx context.Context
	metrics *metrics.Registry

	mu      sync.Mutex
	entries map[string]*subscription
}

type subscription struct {
	refcount int
	cancel   context.CancelFunc
	inflight chan struct{}
	err      error
}

func newSubscriptionManager(ctx context.Context, b bus.Bus, handle messageHandler, reg *metrics.Registry) *subscriptionManager {
	return &subscriptionManager{
		EventEmitter: events.New(),
		bus:          b,
		handle:       handle,
		rootCtx:      ctx,
		metrics:      reg,
		entries:      map[string]*subscription{},
	}
}

// acquire increments channel's refcount, issuing a bus SUBSCRIBE and
// starting its pump goroutine on the 0->1 transition. On subscribe
// failure the refcount is rolled back so the caller may retry.
func (m *subscriptionManager) acquire(ctx context.Context, channel string) error {
	m.mu.Lock()

	entry, exists := m.entries[channel]
	if exists {
		entry.refcount++
		m.mu.Unlock()
		<-entry.inflight
		return entry.err
	}

	entry = &subscription{refcount: 1, inflight: make(chan struct{})}
	m.entries[channel] = entry
	m.mu.Unlock()

	pumpCtx, cancel := context.WithCancel(m.rootCtx)
	entry.cancel = cancel

	ch, err := m.bus.Subscribe(ctx, channel)
	entry.err = err
	close(entry.inflight)

	if err != nil {
		cancel()
		m.mu.Lock()
		delete(m.entries, channel)
		m.mu.Unlock()
		m.Emit("error", err)
		return err
	}

	go m.pump(pumpCtx, channel, ch)
	if m.metrics != nil {
		m.metrics.Subscriptions.OpenChannels.Inc()
	}
	return nil
}

func (m *subscriptionManager) pump(ctx context.Context, channel string, ch <-chan bus.Message) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m.handle(msg.Channel, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

// release decrements channel's refcount, issuing a bus UNSUBSCRIBE and
// stopping its pump goroutine on the 1->0 transition. It returns the
// UNSUBSCRIBE error, if any, in addition to emitting "error" — callers
// that can surface the failure through a completion signal (like
// DelAll) use the return value; callers that cannot just rely on the
// event.
func (m *subscriptionManager) release(ctx context.Context, channel string) error {
	m.mu.Lock()
	entry, exists := m.entries[channel]
	if !exists {
		m.mu.Unlock()
		return nil
	}
	entry.refcount--
	last := entry.refcount <= 0
	if last {
		delete(m.entries, channel)
	}
	m.mu.Unlock()

	if !last {
		return nil
	}
	entry.cancel()
	if m.metrics != nil {
		m.metrics.Subscriptions.OpenChannels.Dec()
	}
	if err := m.bus.Unsubscribe(ctx, channel); err != nil {
		m.Emit("error", err)
		return err
	}
	return nil
}

// refcount reports the current reference count for channel, or 0 if it
// has no active subscription. Exposed for tests asserting on the
// observable subscription-table state.
func (m *subscriptionManager) refcount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[channel]; ok {
		return entry.refcount
	}
	return 0
}
