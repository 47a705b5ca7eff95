package bus

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nickguo/socket.io-redis/pkg/log"
	"github.com/nickguo/socket.io-redis/pkg/types"
)

var busLog = log.NewLog("socket.io-redis:bus")

// RedisBus is the production Bus, backed by a go-redis universal client.
// One native *redis.PubSub connection is opened per subscribed channel;
// each gets its own goroutine pumping ReceiveMessage into a buffered Go
// channel. Callers above (the subscription manager) are responsible for
// never calling Subscribe twice for the same channel without an
// intervening Unsubscribe.
type RedisBus struct {
	client goredis.UniversalClient

	subs *types.Map[string, *goredis.PubSub]
}

// NewRedisBus wraps an already-constructed go-redis universal client
// (standalone, sentinel, or cluster) as a Bus.
func NewRedisBus(client goredis.UniversalClient) *RedisBus {
	return &RedisBus{
		client: client,
		subs:   &types.Map[string, *goredis.PubSub]{},
	}
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) (<-chan Message, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Subscribe() does not round-trip to the server; force one now so a
	// bad address or auth failure surfaces to the caller immediately
	// instead of silently retrying inside the pump goroutine.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	b.subs.Store(channel, pubsub)

	out := make(chan Message, 64)
	go b.pump(ctx, channel, pubsub, out)

	return out, nil
}

func (b *RedisBus) pump(ctx context.Context, channel string, pubsub *goredis.PubSub, out chan<- Message) {
	defer close(out)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, goredis.ErrClosed) || ctx.Err() != nil {
				return
			}
			busLog.Debug("receive error on channel %s: %v", channel, err)
			continue
		}

		select {
		case out <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
		case <-ctx.Done():
			return
		}
	}
}

func (b *RedisBus) Unsubscribe(ctx context.Context, channel string) error {
	pubsub, ok := b.subs.LoadAndDelete(channel)
	if !ok {
		return nil
	}
	err := pubsub.Unsubscribe(ctx, channel)
	if closeErr := pubsub.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBus) NumSub(ctx context.Context, channel string) (int64, error) {
	result, err := b.client.PubSubNumSub(ctx, channel).Result()
	if err != nil {
		return 0, err
	}
	return int64(result[channel]), nil
}
