package redisadapter

import (
	"github.com/nickguo/socket.io-redis/adapter"
	"github.com/nickguo/socket.io-redis/pkg/utils"
)

// Parser encodes and decodes the messages exchanged over the bus.
// Implementations must be safe for concurrent use, since a single
// parser instance is shared by every namespace facade in a process.
type Parser interface {
	Encode(any) ([]byte, error)
	Decode([]byte, any) error
}

// defaultParser is the binary msgpack codec used unless Options.Parser
// overrides it.
type defaultParser struct{}

func (defaultParser) Encode(v any) ([]byte, error) { return utils.MsgPack().Encode(v) }
func (defaultParser) Decode(b []byte, v any) error { return utils.MsgPack().Decode(b, v) }

// broadcastMessage is the payload published on a namespace or room
// channel. Encoded and decoded as a positional array ([uid, packet,
// opts]) rather than a map, matching the wire-compactness convention
// the codec's struct tags establish elsewhere in this module.
type broadcastMessage struct {
	_msgpack struct{} `msgpack:",as_array"`

	UID     string                    `msgpack:"uid"`
	Packet  adapter.Packet            `msgpack:"packet"`
	Options *adapter.BroadcastOptions `msgpack:"opts"`
}

// queryKind distinguishes the two fleet-wide questions the scatter/
// gather protocol can ask: which sockets are in a room set (the
// canonical clients() query), or which rooms exist at all in a
// namespace. Both share the same request/response channel shape and
// coordinator machinery; only the local answer computed by each peer
// and the accumulator it feeds differ.
type queryKind string

const (
	queryKindSIDs  queryKind = "sids"
	queryKindRooms queryKind = "rooms"
)

// clientsRequest is published on the fleet-wide clients-request
// channel to ask every peer either for their local members of a room
// set (Kind == queryKindSIDs) or for every room they know about in the
// namespace (Kind == queryKindRooms, Rooms unused).
type clientsRequest struct {
	_msgpack struct{} `msgpack:",as_array"`

	Namespace string         `msgpack:"nsp"`
	UID       string         `msgpack:"uid"`
	MUID      string         `msgpack:"muid"`
	Kind      queryKind      `msgpack:"kind"`
	Rooms     []adapter.Room `msgpack:"rooms"`
}

// clientsResponse is published by a responder on the query's dedicated
// reply channel. Only the field matching the originating request's
// Kind is populated.
type clientsResponse struct {
	_msgpack struct{} `msgpack:",as_array"`

	SIDs  []adapter.SocketId `msgpack:"sids"`
	Rooms []adapter.Room     `msgpack:"rooms"`
}
