package redisadapter

import (
	"time"

	"github.com/nickguo/socket.io-redis/metrics"
)

// defaultKey is the channel prefix used when Options.Key is empty,
// matching the ecosystem convention this protocol originates from.
const defaultKey = "socket.io"

// defaultRequestTimeout is the base unit scaled by expected peer count
// to compute a clients-query deadline (base_timeout × expected_peers).
const defaultRequestTimeout = 50 * time.Millisecond

// Options configures a fleet shared by every namespace facade created
// from the same Manager.
type Options struct {
	// Key is the channel prefix ("{prefix}#..."). Defaults to
	// "socket.io".
	Key string

	// RequestTimeout is the base unit the clients query coordinator
	// scales linearly by the expected peer count. Defaults to 50ms.
	RequestTimeout time.Duration

	// Parser encodes and decodes messages placed on the bus. Defaults
	// to a msgpack codec.
	Parser Parser

	// Metrics receives subscription, broadcast, and query counters as
	// the adapter runs. Nil disables metrics entirely.
	Metrics *metrics.Registry
}

func (o *Options) withDefaults() *Options {
	merged := &Options{}
	if o != nil {
		*merged = *o
	}
	if merged.Key == "" {
		merged.Key = defaultKey
	}
	if merged.RequestTimeout <= 0 {
		merged.RequestTimeout = defaultRequestTimeout
	}
	if merged.Parser == nil {
		merged.Parser = defaultParser{}
	}
	return merged
}
