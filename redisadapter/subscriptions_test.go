package redisadapter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nickguo/socket.io-redis/bus"
)

func TestSubscriptionManagerAcquireRelease(t *testing.T) {
	ctx := context.Background()
	m := newSubscriptionManager(ctx, bus.NewMemoryBus(), func(string, []byte) {}, nil)

	if err := m.acquire(ctx, "room-a"); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	if got := m.refcount("room-a"); got != 1 {
		t.Fatalf("expected refcount 1 after first acquire, got %d", got)
	}

	if err := m.acquire(ctx, "room-a"); err != nil {
		t.Fatalf("second acquire() error = %v", err)
	}
	if got := m.refcount("room-a"); got != 2 {
		t.Fatalf("expected refcount 2 after second acquire, got %d", got)
	}

	m.release(ctx, "room-a")
	if got := m.refcount("room-a"); got != 1 {
		t.Fatalf("expected refcount 1 after one release, got %d", got)
	}

	m.release(ctx, "room-a")
	if got := m.refcount("room-a"); got != 0 {
		t.Fatalf("expected refcount 0 after matching release, got %d", got)
	}
}

func TestSubscriptionManagerUnsubscribesOnLastRelease(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemoryBus()
	m := newSubscriptionManager(ctx, b, func(string, []byte) {}, nil)

	m.acquire(ctx, "room-a")
	if n, _ := b.NumSub(ctx, "room-a"); n != 1 {
		t.Fatalf("expected bus to report 1 subscriber, got %d", n)
	}

	m.release(ctx, "room-a")
	if n, _ := b.NumSub(ctx, "room-a"); n != 0 {
		t.Fatalf("expected bus subscriber count to drop to 0, got %d", n)
	}
}

func TestSubscriptionManagerSharesInFlightAcquireAndDispatchesOnce(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemoryBus()

	var mu sync.Mutex
	var received []string
	m := newSubscriptionManager(ctx, b, func(channel string, payload []byte) {
		mu.Lock()
		received = append(received, string(payload))
		mu.Unlock()
	}, nil)

	if err := m.acquire(ctx, "room-a"); err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	if err := m.acquire(ctx, "room-a"); err != nil {
		t.Fatalf("second acquire() error = %v", err)
	}
	if n, _ := b.NumSub(ctx, "room-a"); n != 1 {
		t.Fatalf("expected exactly one bus SUBSCRIBE for two acquires, got %d subscribers", n)
	}

	if err := b.Publish(ctx, "room-a", []byte("hello")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for dispatch")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != "hello" {
		t.Fatalf("expected exactly one dispatched message, got %v", received)
	}
}

func TestSubscriptionManagerReleaseOnUnknownChannelIsNoop(t *testing.T) {
	ctx := context.Background()
	m := newSubscriptionManager(ctx, bus.NewMemoryBus(), func(string, []byte) {}, nil)

	// Must not panic.
	m.release(ctx, "never-acquired")
}
