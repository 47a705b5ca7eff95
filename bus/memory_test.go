package bus

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBusPublishDeliversToSubscriber(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()

	ch, err := b.Subscribe(ctx, "room-a")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := b.Publish(ctx, "room-a", []byte("hello")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-ch:
		if string(msg.Payload) != "hello" || msg.Channel != "room-a" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMemoryBusUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBus()

	ch, _ := b.Subscribe(ctx, "room-a")
	if err := b.Unsubscribe(ctx, "room-a"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if _, open := <-ch; open {
		t.Fatal("expected channel closed after Unsubscribe")
	}

	if err := b.Publish(ctx, "room-a", []byte("x")); err != nil {
		t.Fatalf("Publish() after unsubscribe should still succeed with no subscribers: %v", err)
	}
}

func TestMemoryBusNumSubCountsAcrossFleet(t *testing.T) {
	ctx := context.Background()
	fleet := NewMemoryFleet(3)

	if n, _ := fleet[0].NumSub(ctx, "clientrequest"); n != 0 {
		t.Fatalf("expected 0 subscribers initially, got %d", n)
	}

	fleet[0].Subscribe(ctx, "clientrequest")
	fleet[1].Subscribe(ctx, "clientrequest")

	n, err := fleet[2].NumSub(ctx, "clientrequest")
	if err != nil {
		t.Fatalf("NumSub() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 subscribers fleet-wide, got %d", n)
	}
}

func TestMemoryBusFleetFanOut(t *testing.T) {
	ctx := context.Background()
	fleet := NewMemoryFleet(2)

	chA, _ := fleet[0].Subscribe(ctx, "nsp")
	chB, _ := fleet[1].Subscribe(ctx, "nsp")

	if err := fleet[0].Publish(ctx, "nsp", []byte("payload")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, ch := range []<-chan Message{chA, chB} {
		select {
		case msg := <-ch:
			if string(msg.Payload) != "payload" {
				t.Fatalf("unexpected payload: %q", msg.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}
