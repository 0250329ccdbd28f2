// Package instrument holds the prometheus metrics of a hub.
package instrument

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons.
const (
	DropUnauthenticated = "unauthenticated"
	DropPolicy          = "policy"
	DropMalformed       = "malformed"
	DropQueueFull       = "queue_full"
	DropNotPeer         = "not_peer"
)

// Metrics is one hub's set of collectors, registered on its own registry so
// several hubs can run in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Connections  prometheus.Counter
	OpenSockets  prometheus.Gauge
	Auth         *prometheus.CounterVec
	Forwarded    prometheus.Counter
	Relayed      prometheus.Counter
	Dropped      *prometheus.CounterVec
	Identities   prometheus.Gauge
	PeerHubs     prometheus.Gauge
	PeerDialFail prometheus.Counter
}

// New creates and registers a fresh set of hub metrics.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blindrelay_hub_connections_total",
			Help: "Number of accepted or dialed sockets",
		}),
		OpenSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blindrelay_hub_open_sockets",
			Help: "Number of currently open sockets",
		}),
		Auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blindrelay_hub_auth_total",
			Help: "Handshake outcomes by peer kind and result",
		}, []string{"kind", "result"}),
		Forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blindrelay_hub_forwarded_total",
			Help: "Number of envelopes delivered to local sockets",
		}),
		Relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blindrelay_hub_relayed_total",
			Help: "Number of relay frames sent to peer hubs",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blindrelay_hub_dropped_total",
			Help: "Number of dropped frames by reason",
		}, []string{"reason"}),
		Identities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blindrelay_hub_identities",
			Help: "Number of identities with at least one local socket",
		}),
		PeerHubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blindrelay_hub_peer_hubs",
			Help: "Number of pooled peer hub sockets",
		}),
		PeerDialFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blindrelay_hub_peer_dial_failures_total",
			Help: "Number of failed dials to peer hubs",
		}),
	}
	m.Registry.MustRegister(
		m.Connections,
		m.OpenSockets,
		m.Auth,
		m.Forwarded,
		m.Relayed,
		m.Dropped,
		m.Identities,
		m.PeerHubs,
		m.PeerDialFail,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Drop counts one dropped frame.
func (m *Metrics) Drop(reason string) { m.Dropped.WithLabelValues(reason).Inc() }

// AuthResult counts one handshake outcome. kind is "client" or "hub".
func (m *Metrics) AuthResult(kind string, ok bool) {
	result := "bad"
	if ok {
		result = "ok"
	}
	m.Auth.WithLabelValues(kind, result).Inc()
}
