// Package metrics holds the Prometheus collectors of the telnet engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry every collector below is registered with.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	ConnectionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Name: "telnetd_connections_active",
		Help: "Number of open telnet connections",
	})
	ConnectionsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "telnetd_connections_total",
		Help: "Total number of accepted telnet connections",
	})
	ConnectionsRejected = factory.NewCounter(prometheus.CounterOpts{
		Name: "telnetd_connections_rejected_total",
		Help: "Connections rejected because the server was full",
	})
	BytesReceived = factory.NewCounter(prometheus.CounterOpts{
		Name: "telnetd_bytes_received_total",
		Help: "Wire bytes read from peers",
	})
	BytesSent = factory.NewCounter(prometheus.CounterOpts{
		Name: "telnetd_bytes_sent_total",
		Help: "Wire bytes written to peers",
	})
	OptionChanges = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "telnetd_option_changes_total",
		Help: "Settled option negotiations",
	}, []string{"option", "direction", "enabled"})
	NegotiationTimeouts = factory.NewCounter(prometheus.CounterOpts{
		Name: "telnetd_negotiation_timeouts_total",
		Help: "Option requests the peer never answered",
	})
	Disconnects = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "telnetd_disconnects_total",
		Help: "Closed connections by cause",
	}, []string{"cause"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
