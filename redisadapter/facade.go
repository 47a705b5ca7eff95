package redisadapter

import (
	"sync"

	"github.com/nickguo/socket.io-redis/adapter"
	"github.com/nickguo/socket.io-redis/pkg/events"
)

// Facade is the per-namespace adapter (C7) exposed to a socket server:
// add/del/delAll drive the local membership index and, through it, the
// room-channel subscriptions; broadcast publishes outbound messages and
// replays inbound ones; clients answers fleet-wide membership queries.
//
// A Facade emits "broadcast" with (Packet, []adapter.SocketId) for every
// packet it delivers locally — the hook a real transport layer attaches
// to in order to actually write bytes to the matched sockets. It emits
// "error" for any bus or codec failure it cannot propagate through a
// callback.
type Facade struct {
	events.EventEmitter

	mgr       *Manager
	namespace string
	local     adapter.Local

	// mu serializes add/del/delAll so the room-channel acquire/release
	// triggered by the local membership events below never interleaves
	// with another call's view of lastRoomErr.
	mu          sync.Mutex
	lastRoomErr error
}

func newFacade(mgr *Manager, namespace string, local adapter.Local) *Facade {
	f := &Facade{
		EventEmitter: events.New(),
		mgr:          mgr,
		namespace:    namespace,
		local:        local,
	}

	local.On("create-room", func(args ...any) {
		room := args[0].(adapter.Room)
		channel := roomChannel(mgr.opts.Key, namespace, string(room))
		if err := mgr.subs.acquire(mgr.ctx, channel); err != nil {
			f.lastRoomErr = err
			f.Emit("error", err)
			return
		}
		f.lastRoomErr = nil
	})

	local.On("delete-room", func(args ...any) {
		room := args[0].(adapter.Room)
		channel := roomChannel(mgr.opts.Key, namespace, string(room))
		if err := mgr.subs.release(mgr.ctx, channel); err != nil {
			f.lastRoomErr = err
			f.Emit("error", err)
			return
		}
		f.lastRoomErr = nil
	})

	return f
}

// Namespace returns the namespace name this facade was built for.
func (f *Facade) Namespace() string { return f.namespace }

// Close releases this facade's namespace-channel subscription and stops
// routing inbound traffic to it. Room-channel subscriptions for rooms
// that still have local members are not released; callers should
// DelAll every socket before Close.
func (f *Facade) Close() {
	f.mgr.closeNamespace(f)
}

// Add joins sid to room. On bus subscribe failure (a 0->1 room-channel
// transition whose SUBSCRIBE call failed), cb receives the error and an
// "error" event is also emitted; the local membership change itself
// still took effect, matching the base adapter's unconditional local
// semantics — only the remote fan-out is incomplete.
func (f *Facade) Add(sid adapter.SocketId, room adapter.Room, cb func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastRoomErr = nil
	f.local.LocalAdd(sid, room)
	if cb != nil {
		cb(f.lastRoomErr)
	}
}

// Del removes sid from room. If that emptied the room, the room channel
// is unsubscribed; a bus unsubscribe failure is reported the same way
// as Add's subscribe failure.
func (f *Facade) Del(sid adapter.SocketId, room adapter.Room, cb func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastRoomErr = nil
	f.local.LocalDel(sid, room)
	if cb != nil {
		cb(f.lastRoomErr)
	}
}

// DelAll removes sid from every room it belongs to. Rooms are processed
// one at a time so that, on the first bus unsubscribe failure, the loop
// aborts: rooms already processed stay cleaned up, remaining rooms are
// left untouched, and sid is only pruned from the local index entirely
// once every room succeeded.
func (f *Facade) DelAll(sid adapter.SocketId, cb func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, room := range f.local.SocketRooms(sid) {
		f.lastRoomErr = nil
		f.local.LocalDel(sid, room)
		if f.lastRoomErr != nil {
			if cb != nil {
				cb(f.lastRoomErr)
			}
			return
		}
	}

	// Every room succeeded (or sid had none); sid's now-empty entry in
	// the sids map is still present until pruned here.
	f.local.LocalDelAll(sid)
	if cb != nil {
		cb(nil)
	}
}

// Broadcast implements the publish/receive path of §4.5. It always
// delivers locally first; if remote is true (this call originated from
// a decoded bus message) it stops there to avoid re-publishing an
// inbound message back onto the bus.
func (f *Facade) Broadcast(packet adapter.Packet, opts *adapter.BroadcastOptions, remote bool) {
	f.deliverLocal(packet, opts)

	if remote {
		return
	}

	msg := broadcastMessage{UID: f.mgr.uid, Packet: packet, Options: opts}
	payload, err := f.mgr.opts.Parser.Encode(msg)
	if err != nil {
		f.Emit("error", err)
		f.countDropped()
		return
	}

	if opts != nil && len(opts.Rooms) > 0 {
		for _, room := range opts.Rooms {
			channel := roomChannel(f.mgr.opts.Key, f.namespace, string(room))
			if err := f.mgr.bus.Publish(f.mgr.ctx, channel, payload); err != nil {
				f.Emit("error", err)
				f.countDropped()
				continue
			}
			f.countPublished()
		}
		return
	}

	channel := namespaceChannel(f.mgr.opts.Key, f.namespace)
	if err := f.mgr.bus.Publish(f.mgr.ctx, channel, payload); err != nil {
		f.Emit("error", err)
		f.countDropped()
		return
	}
	f.countPublished()
}

func (f *Facade) countPublished() {
	if f.mgr.opts.Metrics != nil {
		f.mgr.opts.Metrics.Broadcasts.Published.Inc()
	}
}

func (f *Facade) countDropped() {
	if f.mgr.opts.Metrics != nil {
		f.mgr.opts.Metrics.Broadcasts.Dropped.Inc()
	}
}

// deliverLocal computes the packet's audience from the local membership
// index (rooms minus except) and emits "broadcast" for a transport
// layer to actually deliver to.
func (f *Facade) deliverLocal(packet adapter.Packet, opts *adapter.BroadcastOptions) {
	var rooms, except []adapter.Room
	if opts != nil {
		rooms, except = opts.Rooms, opts.Except
	}

	targets := f.local.LocalClients(rooms)
	if len(except) > 0 {
		excluded := map[adapter.SocketId]struct{}{}
		for _, sid := range f.local.LocalClients(except) {
			excluded[sid] = struct{}{}
		}
		filtered := targets[:0]
		for _, sid := range targets {
			if _, skip := excluded[sid]; !skip {
				filtered = append(filtered, sid)
			}
		}
		targets = filtered
	}

	f.Emit("broadcast", packet, targets)
}

// Clients answers which SIDs are in the union of rooms across the
// entire fleet. cb is invoked exactly once.
func (f *Facade) Clients(rooms []adapter.Room, cb func([]adapter.SocketId, error)) {
	f.mgr.queries.query(f.namespace, f.local, rooms, f.mgr.opts.Parser.Encode, cb)
}

// Rooms answers which rooms exist anywhere in the namespace across the
// entire fleet. cb is invoked exactly once.
func (f *Facade) Rooms(cb func([]adapter.Room, error)) {
	f.mgr.queries.queryRooms(f.namespace, f.local, f.mgr.opts.Parser.Encode, cb)
}
