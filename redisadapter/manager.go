package redisadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/nickguo/socket.io-redis/adapter"
	"github.com/nickguo/socket.io-redis/bus"
	"github.com/nickguo/socket.io-redis/pkg/log"
)

var managerLog = log.NewLog("socket.io-redis:adapter")

// Manager owns the fleet-wide state shared by every namespace facade
// built on top of one bus connection: the node's UID (C2), the
// refcounted subscription table (C4) and its single demultiplexing
// dispatch handler, and the clients query coordinator (C6).
type Manager struct {
	bus  bus.Bus
	opts *Options
	uid  string
	ctx  context.Context

	subs    *subscriptionManager
	queries *queryCoordinator

	mu      sync.Mutex
	facades map[string]*Facade
	reqChan string
}

// NewManager constructs the fleet-wide state for one process: a fresh
// node UID, the process-wide clients-request subscription, and the
// query coordinator. ctx governs the lifetime of every bus subscription
// opened through this manager.
func NewManager(ctx context.Context, b bus.Bus, opts *Options) (*Manager, error) {
	opts = opts.withDefaults()
	uid := newUID()

	m := &Manager{
		bus:     b,
		opts:    opts,
		uid:     uid,
		ctx:     ctx,
		facades: map[string]*Facade{},
		reqChan: clientRequestChannel(opts.Key),
	}
	m.subs = newSubscriptionManager(ctx, b, m.dispatch, opts.Metrics)
	m.queries = newQueryCoordinator(
		opts.RequestTimeout, opts.Key, m.reqChan, uid,
		func(ch string) error { return m.subs.acquire(ctx, ch) },
		func(ch string) { m.subs.release(ctx, ch) },
		func(ch string, payload []byte) error { return m.bus.Publish(ctx, ch, payload) },
		func(ch string) (int64, error) { return m.bus.NumSub(ctx, ch) },
		opts.Metrics,
	)

	if err := m.subs.acquire(ctx, m.reqChan); err != nil {
		return nil, fmt.Errorf("subscribe clients-request channel: %w", err)
	}
	return m, nil
}

// UID returns this process's node identifier.
func (m *Manager) UID() string { return m.uid }

// NewNamespace builds the per-namespace facade (C7) for nsp, subscribing
// it to its namespace channel and registering it so inbound broadcasts
// and clients-requests addressed to nsp are routed to it.
func (m *Manager) NewNamespace(nsp string, local adapter.Local) (*Facade, error) {
	f := newFacade(m, nsp, local)

	m.mu.Lock()
	m.facades[nsp] = f
	m.mu.Unlock()

	if err := m.subs.acquire(m.ctx, namespaceChannel(m.opts.Key, nsp)); err != nil {
		m.mu.Lock()
		delete(m.facades, nsp)
		m.mu.Unlock()
		return nil, err
	}
	return f, nil
}

// closeNamespace releases a namespace facade's namespace-channel
// subscription and stops routing messages to it. Room-channel
// subscriptions are not touched.
func (m *Manager) closeNamespace(f *Facade) {
	m.mu.Lock()
	delete(m.facades, f.namespace)
	m.mu.Unlock()

	if err := m.subs.release(m.ctx, namespaceChannel(m.opts.Key, f.namespace)); err != nil {
		managerLog.Debug("failed to unsubscribe namespace channel on close: %v", err)
	}
}

func (m *Manager) facade(nsp string) *Facade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facades[nsp]
}

// dispatch is the single demultiplexing handler every inbound bus
// message funnels through, routing by channel shape to the broadcast
// inbound path, the clients-request responder path, or a pending
// query's response accumulator.
func (m *Manager) dispatch(channel string, payload []byte) {
	decoded, ok := decodeChannel(m.opts.Key, channel)
	if !ok {
		managerLog.Debug("ignoring channel that does not match our prefix: %s", channel)
		return
	}

	switch decoded.Kind {
	case kindNamespace, kindRoom:
		m.onBroadcast(payload)
	case kindClientRequest:
		m.onClientRequest(payload)
	case kindClientResponse:
		m.onClientResponse(decoded.MUID, payload)
	}
}

// onBroadcast implements the receive path of §4.5: decode, drop our own
// echo, default the namespace, and hand off to the matching facade's
// reentrant Broadcast call with remote=true.
func (m *Manager) onBroadcast(payload []byte) {
	var msg broadcastMessage
	if err := m.opts.Parser.Decode(payload, &msg); err != nil {
		managerLog.Debug("failed to decode broadcast message: %v", err)
		if m.opts.Metrics != nil {
			m.opts.Metrics.Broadcasts.Dropped.Inc()
		}
		return
	}
	if msg.UID == m.uid {
		managerLog.Debug("ignoring broadcast from our own uid")
		return
	}

	if msg.Packet.Nsp == "" {
		msg.Packet.Nsp = "/"
	}

	f := m.facade(msg.Packet.Nsp)
	if f == nil {
		managerLog.Debug("ignoring broadcast for namespace %s not hosted here", msg.Packet.Nsp)
		return
	}
	if m.opts.Metrics != nil {
		m.opts.Metrics.Broadcasts.Received.Inc()
	}
	f.Broadcast(msg.Packet, msg.Options, true)
}

// onClientRequest implements the responder path of §4.6.3: drop
// requests from ourselves or for namespaces we don't host locally,
// otherwise answer with our local members of the requested rooms.
func (m *Manager) onClientRequest(payload []byte) {
	var req clientsRequest
	if err := m.opts.Parser.Decode(payload, &req); err != nil {
		managerLog.Debug("failed to decode clients request: %v", err)
		return
	}
	if req.UID == m.uid {
		managerLog.Debug("ignoring clients request from our own uid")
		return
	}

	f := m.facade(req.Namespace)
	if f == nil {
		managerLog.Debug("ignoring clients request for namespace %s not hosted here", req.Namespace)
		return
	}

	var resp clientsResponse
	switch req.Kind {
	case queryKindRooms:
		resp = clientsResponse{Rooms: f.local.LocalRooms()}
	default:
		resp = clientsResponse{SIDs: f.local.LocalClients(req.Rooms)}
	}
	payloadOut, err := m.opts.Parser.Encode(resp)
	if err != nil {
		managerLog.Debug("failed to encode clients response: %v", err)
		return
	}

	respChannel := clientResponseChannel(m.opts.Key, req.MUID)
	if err := m.bus.Publish(m.ctx, respChannel, payloadOut); err != nil {
		managerLog.Debug("failed to publish clients response: %v", err)
	}
}

// onClientResponse implements step 7 of §4.6.2: feed a decoded
// response payload into the outstanding query identified by muid.
func (m *Manager) onClientResponse(muid string, payload []byte) {
	var resp clientsResponse
	if err := m.opts.Parser.Decode(payload, &resp); err != nil {
		managerLog.Debug("failed to decode clients response: %v", err)
		return
	}
	m.queries.onResponse(muid, resp)
}
