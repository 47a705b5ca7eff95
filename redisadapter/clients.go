package redisadapter

import (
	"sync"
	"time"

	"github.com/nickguo/socket.io-redis/adapter"
	"github.com/nickguo/socket.io-redis/metrics"
	"github.com/nickguo/socket.io-redis/pkg/utils"
)

// outstandingQuery tracks one in-flight fleet-wide scatter/gather call
// (either the canonical clients() SIDs query or the supplemental rooms
// query): how many peer responses are still expected, a merge callback
// that folds one more decoded response into the caller's own
// accumulator, and the timer that forces completion if peers never
// answer.
type outstandingQuery struct {
	expected     int
	timer        *utils.Timer
	merge        func(clientsResponse)
	complete     func(error)
	responseChan string
	err          error
	timedOut     bool
}

// queryCoordinator implements the clients query coordinator (C6):
// scatter/gather over the clients-request/clients-response channels.
type queryCoordinator struct {
	mu      sync.Mutex
	pending map[string]*outstandingQuery

	baseTimeout time.Duration

	subscribeResponse func(channel string) error
	releaseResponse   func(channel string)
	publish           func(channel string, payload []byte) error
	numSub            func(channel string) (int64, error)

	prefix         string
	requestChannel string
	uid            string
	metrics        *metrics.Registry
}

func newQueryCoordinator(
	baseTimeout time.Duration,
	prefix, requestChannel, uid string,
	subscribeResponse func(string) error,
	releaseResponse func(string),
	publish func(string, []byte) error,
	numSub func(string) (int64, error),
	reg *metrics.Registry,
) *queryCoordinator {
	return &queryCoordinator{
		pending:           map[string]*outstandingQuery{},
		baseTimeout:       baseTimeout,
		subscribeResponse: subscribeResponse,
		releaseResponse:   releaseResponse,
		publish:           publish,
		numSub:            numSub,
		prefix:            prefix,
		requestChannel:    requestChannel,
		uid:               uid,
		metrics:           reg,
	}
}

// query performs the canonical clients() fleet call described in §4.6:
// seed with local SIDs, determine the expected peer count from the
// bus's own subscriber count on the request channel, subscribe to a
// fresh per-query response channel, arm a linearly-scaled timeout,
// publish the request, and invoke done exactly once with the
// accumulated SIDs once every expected peer has answered or the
// deadline fires.
func (q *queryCoordinator) query(namespace string, local adapter.Local, rooms []adapter.Room, encode func(any) ([]byte, error), done func([]adapter.SocketId, error)) {
	accumulator := append([]adapter.SocketId(nil), local.LocalClients(rooms)...)

	q.scatterGather(scatterGatherArgs{
		namespace: namespace,
		kind:      queryKindSIDs,
		rooms:     rooms,
		encode:    encode,
		merge: func(resp clientsResponse) {
			accumulator = append(accumulator, resp.SIDs...)
		},
		complete: func(err error) { done(accumulator, err) },
	})
}

// queryRooms performs the supplemental fleet-wide "which rooms exist in
// this namespace" call: the same scatter/gather shape as query, but
// seeded with and accumulating room names instead of socket IDs.
func (q *queryCoordinator) queryRooms(namespace string, local adapter.Local, encode func(any) ([]byte, error), done func([]adapter.Room, error)) {
	accumulator := append([]adapter.Room(nil), local.LocalRooms()...)

	q.scatterGather(scatterGatherArgs{
		namespace: namespace,
		kind:      queryKindRooms,
		encode:    encode,
		merge: func(resp clientsResponse) {
			accumulator = append(accumulator, resp.Rooms...)
		},
		complete: func(err error) { done(accumulator, err) },
	})
}

// scatterGatherArgs bundles one scatter/gather call's kind-specific
// pieces: what local answer was already seeded (via merge's closure),
// how to fold one more peer response in, and how to hand the final
// result back to the caller.
type scatterGatherArgs struct {
	namespace string
	kind      queryKind
	rooms     []adapter.Room
	encode    func(any) ([]byte, error)
	merge     func(clientsResponse)
	complete  func(error)
}

// scatterGather is the kind-agnostic core of §4.6: determine the
// expected peer count, subscribe a response channel, arm a
// linearly-scaled timeout, publish the request, and let onResponse/
// finish drive the rest.
func (q *queryCoordinator) scatterGather(args scatterGatherArgs) {
	subs, err := q.numSub(q.requestChannel)
	if err != nil {
		args.complete(err)
		return
	}

	expected := int(subs) - 1
	if expected <= 0 {
		args.complete(nil)
		return
	}

	muid := newMUID()
	responseChannel := clientResponseChannel(q.prefix, muid)

	if err := q.subscribeResponse(responseChannel); err != nil {
		args.complete(err)
		return
	}

	query := &outstandingQuery{
		expected:     expected,
		merge:        args.merge,
		complete:     args.complete,
		responseChan: responseChannel,
	}

	q.mu.Lock()
	q.pending[muid] = query
	q.mu.Unlock()
	if q.metrics != nil {
		q.metrics.Subscriptions.OutstandingQueries.Inc()
	}

	deadline := time.Duration(expected) * q.baseTimeout
	query.timer = utils.SetTimeout(func() {
		q.mu.Lock()
		if pending, ok := q.pending[muid]; ok {
			pending.timedOut = true
		}
		q.mu.Unlock()
		q.finish(muid)
	}, deadline)

	payload, err := args.encode(clientsRequest{
		Namespace: args.namespace,
		UID:       q.uid,
		MUID:      muid,
		Kind:      args.kind,
		Rooms:     args.rooms,
	})
	if err != nil {
		q.abort(muid, err)
		return
	}

	if err := q.publish(q.requestChannel, payload); err != nil {
		q.abort(muid, err)
	}
}

// abort records the failure that forced an early completion and tears
// the query down immediately.
func (q *queryCoordinator) abort(muid string, err error) {
	q.mu.Lock()
	if query, ok := q.pending[muid]; ok {
		query.err = err
	}
	q.mu.Unlock()
	q.finish(muid)
}

// onResponse handles a decoded response arriving on a query's response
// channel, folding it into the query's accumulator via its merge
// callback. When the expected count reaches zero the query completes
// immediately rather than waiting out the timeout.
func (q *queryCoordinator) onResponse(muid string, resp clientsResponse) {
	q.mu.Lock()
	query, ok := q.pending[muid]
	if !ok {
		q.mu.Unlock()
		managerLog.Debug("ignoring clients response for unknown query %s", muid)
		return
	}
	query.merge(resp)
	query.expected--
	done := query.expected <= 0
	q.mu.Unlock()

	if done {
		q.finish(muid)
	}
}

// finish tears down a query exactly once, whether triggered by the
// expected count reaching zero or by the timer firing, and invokes the
// caller's completion callback with whatever was accumulated.
func (q *queryCoordinator) finish(muid string) {
	q.mu.Lock()
	query, ok := q.pending[muid]
	if !ok {
		q.mu.Unlock()
		return
	}
	delete(q.pending, muid)
	q.mu.Unlock()

	utils.ClearTimeout(query.timer)
	q.releaseResponse(query.responseChan)
	if q.metrics != nil {
		q.metrics.Subscriptions.OutstandingQueries.Dec()
		if query.timedOut {
			q.metrics.Queries.TimedOut.Inc()
		} else {
			q.metrics.Queries.Completed.Inc()
		}
	}
	query.complete(query.err)
}
