// Package adapter defines the domain types shared by the broadcast
// engine, clients-query coordinator and per-namespace facade, and
// provides a reference in-memory implementation of the local
// membership index (C3) that those components are built against.
package adapter

// Room is an arbitrary channel grouping within a namespace.
type Room string

// SocketId identifies one locally or remotely connected client.
type SocketId string

// UID identifies a node (a single process) across the fleet. Every
// outbound message is tagged with the local UID so a node can recognize
// and drop its own echoes when a message comes back over the bus.
type UID string

// Packet is the payload carried by a broadcast. Nsp is omitted from the
// wire when empty, and an empty Nsp is set to "/" when an inbound
// broadcast is decoded.
type Packet struct {
	Nsp  string `json:"nsp,omitempty" msgpack:"nsp,omitempty"`
	Type int    `json:"type" msgpack:"type"`
	Data any    `json:"data,omitempty" msgpack:"data,omitempty"`
	Id   *int64 `json:"id,omitempty" msgpack:"id,omitempty"`
}

// BroadcastFlags carries delivery modifiers that ride along with a
// broadcast but do not affect routing (room/except selection).
type BroadcastFlags struct {
	Volatile bool `json:"volatile,omitempty" msgpack:"volatile,omitempty"`
	Compress bool `json:"compress,omitempty" msgpack:"compress,omitempty"`
	Local    bool `json:"local,omitempty" msgpack:"local,omitempty"`
}

// BroadcastOptions selects the audience for a broadcast or a clients
// query: the union of Rooms, minus every socket that belongs to any of
// the Except rooms. An empty Rooms set means "everyone in the namespace".
type BroadcastOptions struct {
	Rooms  []Room          `json:"rooms,omitempty" msgpack:"rooms,omitempty"`
	Except []Room          `json:"except,omitempty" msgpack:"except,omitempty"`
	Flags  *BroadcastFlags `json:"flags,omitempty" msgpack:"flags,omitempty"`
}
