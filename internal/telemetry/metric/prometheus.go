package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respkv"

// Command outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ProtocolErrors    prometheus.Counter
	HandshakeState    prometheus.Gauge
}

// NewRegistry creates a registry with the respkv metrics and the standard
// Go and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command name and outcome.",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent dispatching a command.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"command"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Client connections currently open.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted since start.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Connections closed because of a malformed frame.",
		}),
		HandshakeState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "replica_handshake_state",
			Help:      "Replica handshake state (0 disconnected, 1 awaiting pong, 2 awaiting fullresync, 3 synchronized, -1 failed).",
		}),
	}

	reg.MustRegister(
		r.CommandsTotal,
		r.CommandDuration,
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.ProtocolErrors,
		r.HandshakeState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// MustRegister adds extra collectors, such as a KeyspaceCollector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	if r == nil {
		return
	}
	r.registry.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for scraping and tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ObserveCommand records one dispatched command.
func (r *Registry) ObserveCommand(command, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(command, status).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.ConnectionsTotal.Inc()
	r.ConnectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Dec()
}

// ProtocolError records a connection dropped for a malformed frame.
func (r *Registry) ProtocolError() {
	if r == nil {
		return
	}
	r.ProtocolErrors.Inc()
}

// SetHandshakeState publishes the replica handshake state.
func (r *Registry) SetHandshakeState(state int) {
	if r == nil {
		return
	}
	r.HandshakeState.Set(float64(state))
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// NewServer returns an HTTP server exposing /metrics on addr.
func (r *Registry) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
