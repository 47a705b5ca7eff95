package redisadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/nickguo/socket.io-redis/adapter"
	"github.com/nickguo/socket.io-redis/bus"
)

// failUnsubscribeBus wraps a Bus and fails Unsubscribe for one chosen
// channel, letting a test force the bus unsubscribe failure branch of
// DelAll's partial-cleanup behavior.
type failUnsubscribeBus struct {
	bus.Bus
	failChannel string
}

func (f *failUnsubscribeBus) Unsubscribe(ctx context.Context, channel string) error {
	if channel == f.failChannel {
		return errors.New("simulated unsubscribe failure")
	}
	return f.Bus.Unsubscribe(ctx, channel)
}

func TestDelAllAbortsOnFirstBusFailureLeavingPartialCleanup(t *testing.T) {
	mem := bus.NewMemoryBus()
	failingRoom := roomChannel("socket.io", "/", "only-room")
	wrapped := &failUnsubscribeBus{Bus: mem, failChannel: failingRoom}

	mgr, err := NewManager(context.Background(), wrapped, &Options{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	local := adapter.NewLocal()
	facade, err := mgr.NewNamespace("/", local)
	if err != nil {
		t.Fatalf("NewNamespace() error = %v", err)
	}

	facade.Add("sid-1", "only-room", nil)

	var cbErr error
	facade.DelAll("sid-1", func(err error) { cbErr = err })

	if cbErr == nil {
		t.Fatal("expected DelAll to report the simulated unsubscribe failure")
	}

	// The local membership change (LocalDel) still took effect even
	// though the bus unsubscribe failed, so sid-1 no longer sits in
	// "only-room" — but the failure must have stopped LocalDelAll from
	// running, so sid-1's (now empty) entry in the sids map survives.
	rooms := local.SocketRooms("sid-1")
	if rooms == nil {
		t.Fatal("expected sid-1's entry to remain in the local index after a partial failure")
	}
	if len(rooms) != 0 {
		t.Fatalf("expected sid-1 to have been removed from 'only-room', got %v", rooms)
	}
}
