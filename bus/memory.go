package bus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process fan-out bus used in tests to exercise the
// subscription manager, broadcast engine and clients query coordinator
// without a live Redis server. Every MemoryBus sharing the same
// *sharedState represents one fleet; construct one per simulated node
// with NewMemoryFleet.
type MemoryBus struct {
	state *sharedState
}

type sharedState struct {
	mu   sync.Mutex
	subs map[string][]chan Message
}

// NewMemoryFleet returns n MemoryBus instances that publish to and
// subscribe from a shared in-process channel table, simulating n peer
// nodes sharing one bus.
func NewMemoryFleet(n int) []*MemoryBus {
	state := &sharedState{subs: map[string][]chan Message{}}
	fleet := make([]*MemoryBus, n)
	for i := range fleet {
		fleet[i] = &MemoryBus{state: state}
	}
	return fleet
}

// NewMemoryBus returns a single standalone MemoryBus, equivalent to a
// fleet of one node.
func NewMemoryBus() *MemoryBus {
	return NewMemoryFleet(1)[0]
}

func (b *MemoryBus) Subscribe(ctx context.Context, channel string) (<-chan Message, error) {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	ch := make(chan Message, 64)
	b.state.subs[channel] = append(b.state.subs[channel], ch)
	return ch, nil
}

func (b *MemoryBus) Unsubscribe(ctx context.Context, channel string) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	subs := b.state.subs[channel]
	if len(subs) == 0 {
		return nil
	}
	// Remove and close the most recently subscribed channel for this
	// bus instance; tests only ever hold one subscription per channel
	// per node.
	last := subs[len(subs)-1]
	close(last)
	b.state.subs[channel] = subs[:len(subs)-1]
	if len(b.state.subs[channel]) == 0 {
		delete(b.state.subs, channel)
	}
	return nil
}

func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.state.mu.Lock()
	subs := append([]chan Message(nil), b.state.subs[channel]...)
	b.state.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- Message{Channel: channel, Payload: payload}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) NumSub(ctx context.Context, channel string) (int64, error) {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	return int64(len(b.state.subs[channel])), nil
}
