package adapter

import (
	"github.com/nickguo/socket.io-redis/pkg/events"
	"github.com/nickguo/socket.io-redis/pkg/types"
)

// Local is the contract the broadcast engine (C5), the clients query
// coordinator (C6) and the namespace facade (C7) are built against. It
// tracks which sockets have joined which rooms in this process only —
// nothing here crosses the bus.
//
// Implementations must emit "create-room" and "delete-room" exactly
// once per transition (0 subscribers -> 1, 1 -> 0) so the subscription
// manager (C4) can drive its refcounted SUBSCRIBE/UNSUBSCRIBE calls off
// those events rather than polling the room table.
type Local interface {
	events.EventEmitter

	// LocalAdd joins sid to room. Idempotent: joining a room a socket
	// already belongs to is a no-op beyond the initial join-room emit.
	LocalAdd(sid SocketId, room Room)

	// LocalDel removes sid from room. Idempotent.
	LocalDel(sid SocketId, room Room)

	// LocalDelAll removes sid from every room it belongs to and returns
	// the rooms it was removed from.
	LocalDelAll(sid SocketId) []Room

	// LocalClients returns the union of sockets present in any of the
	// given rooms, or every known socket if rooms is empty. Duplicates
	// are removed; order is unspecified.
	LocalClients(rooms []Room) []SocketId

	// SocketRooms returns the rooms sid has joined, or nil if sid is
	// unknown locally.
	SocketRooms(sid SocketId) []Room

	// LocalRooms returns every room with at least one local member.
	LocalRooms() []Room
}

// localAdapter is the reference in-memory Local implementation, carried
// over from a base adapter's two-map membership index: rooms maps a
// room to its member set, sids maps a socket to the set of rooms it has
// joined. Each map and each member set has its own lock; an update
// touches sids first and rooms second, so a concurrent reader can see
// one updated before the other.
type localAdapter struct {
	events.EventEmitter

	rooms *types.Map[Room, *types.Set[SocketId]]
	sids  *types.Map[SocketId, *types.Set[Room]]
}

// NewLocal returns a ready-to-use in-memory Local implementation.
func NewLocal() Local {
	return &localAdapter{
		EventEmitter: events.New(),
		rooms:        &types.Map[Room, *types.Set[SocketId]]{},
		sids:         &types.Map[SocketId, *types.Set[Room]]{},
	}
}

func (a *localAdapter) LocalAdd(sid SocketId, room Room) {
	joined, _ := a.sids.LoadOrStore(sid, types.NewSet[Room]())
	joined.Add(room)

	members, existed := a.rooms.LoadOrStore(room, types.NewSet[SocketId]())
	if !existed {
		a.Emit("create-room", room)
	}
	if !members.Has(sid) {
		members.Add(sid)
		a.Emit("join-room", room, sid)
	}
}

func (a *localAdapter) LocalDel(sid SocketId, room Room) {
	if joined, ok := a.sids.Load(sid); ok {
		joined.Delete(room)
	}
	a.leaveRoom(room, sid)
}

func (a *localAdapter) leaveRoom(room Room, sid SocketId) {
	members, ok := a.rooms.Load(room)
	if !ok {
		return
	}
	if members.Has(sid) {
		members.Delete(sid)
		a.Emit("leave-room", room, sid)
	}
	if members.Len() == 0 {
		if _, ok := a.rooms.LoadAndDelete(room); ok {
			a.Emit("delete-room", room)
		}
	}
}

func (a *localAdapter) LocalDelAll(sid SocketId) []Room {
	joined, ok := a.sids.Load(sid)
	if !ok {
		return nil
	}

	rooms := joined.Keys()
	for _, room := range rooms {
		a.leaveRoom(room, sid)
	}
	a.sids.Delete(sid)
	return rooms
}

func (a *localAdapter) LocalClients(rooms []Room) []SocketId {
	if len(rooms) == 0 {
		return a.sids.Keys()
	}

	seen := types.NewSet[SocketId]()
	for _, room := range rooms {
		if members, ok := a.rooms.Load(room); ok {
			seen.Add(members.Keys()...)
		}
	}
	return seen.Keys()
}

func (a *localAdapter) SocketRooms(sid SocketId) []Room {
	if rooms, ok := a.sids.Load(sid); ok {
		return rooms.Keys()
	}
	return nil
}

func (a *localAdapter) LocalRooms() []Room {
	return a.rooms.Keys()
}
