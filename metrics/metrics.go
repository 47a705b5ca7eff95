// Package metrics exposes the adapter's Prometheus collectors: how many
// bus channels are currently subscribed, how broadcast
// traffic is flowing, and how the clients-query scatter/gather is
// performing against the fleet.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors the adapter updates as it
// runs. Construct one via NewRegistry; a zero Registry holds nil
// collectors. Where the adapter accepts a *Registry, nil disables
// metrics.
type Registry struct {
	Subscriptions gaugeVec
	Broadcasts    counterVec
	Queries       queryVec
}

type gaugeVec struct {
	OpenChannels       prometheus.Gauge
	OutstandingQueries prometheus.Gauge
}

type counterVec struct {
	Published prometheus.Counter
	Received  prometheus.Counter
	Dropped   prometheus.Counter
}

type queryVec struct {
	Completed prometheus.Counter
	TimedOut  prometheus.Counter
}

// NewRegistry builds and registers every collector against the default
// Prometheus registry.
func NewRegistry() *Registry {
	return &Registry{
		Subscriptions: gaugeVec{
			OpenChannels: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "socketio_redis_adapter_open_channels",
				Help: "Number of bus channels currently subscribed (room, namespace, clients-request and clients-response channels combined)",
			}),
			OutstandingQueries: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "socketio_redis_adapter_outstanding_queries",
				Help: "Number of clients() scatter/gather queries awaiting responses or timeout",
			}),
		},
		Broadcasts: counterVec{
			Published: promauto.NewCounter(prometheus.CounterOpts{
				Name: "socketio_redis_adapter_broadcasts_published_total",
				Help: "Total number of broadcast messages published to the bus",
			}),
			Received: promauto.NewCounter(prometheus.CounterOpts{
				Name: "socketio_redis_adapter_broadcasts_received_total",
				Help: "Total number of broadcast messages received from the bus, not self-echoed, and routed to a locally hosted namespace",
			}),
			Dropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "socketio_redis_adapter_broadcasts_dropped_total",
				Help: "Total number of broadcast messages dropped on encode, publish or decode failure",
			}),
		},
		Queries: queryVec{
			Completed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "socketio_redis_adapter_queries_completed_total",
				Help: "Total number of clients() queries that completed without timing out (every expected response collected, or aborted by an encode or publish error)",
			}),
			TimedOut: promauto.NewCounter(prometheus.CounterOpts{
				Name: "socketio_redis_adapter_queries_timed_out_total",
				Help: "Total number of clients() queries that completed by timing out before every peer responded",
			}),
		},
	}
}

// Handler returns an HTTP handler exposing the registered metrics in
// the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
