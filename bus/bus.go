// Package bus abstracts the shared pub/sub bus the adapter fans
// broadcasts and clients-queries out over. The production
// implementation is backed by Redis; tests run against an in-process
// fake so the subscription manager and broadcast engine can be
// exercised without a live server.
package bus

import "context"

// Message is one payload delivered on a subscribed channel.
type Message struct {
	Channel string
	Payload []byte
}

// Bus is the contract the subscription manager (C4), broadcast engine
// (C5) and clients query coordinator (C6) are built against. A single
// Bus instance is shared by every namespace facade in a process.
type Bus interface {
	// Subscribe starts delivering messages published to channel on ch.
	// Implementations do not detect a second Subscribe for a channel
	// that is already subscribed; callers reference-count above this
	// layer (C4) so each channel is subscribed at most once per Bus.
	Subscribe(ctx context.Context, channel string) (ch <-chan Message, err error)

	// Unsubscribe stops delivery for channel and closes its message
	// channel.
	Unsubscribe(ctx context.Context, channel string) error

	// Publish sends payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// NumSub returns the number of subscribers currently subscribed to
	// channel, fleet-wide, as reported by the bus itself.
	NumSub(ctx context.Context, channel string) (int64, error)
}
