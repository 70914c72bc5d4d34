package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamware/bandstand/internal/protocol"
)

// Metrics are the Prometheus collectors of one server.
type Metrics struct {
	Connections  prometheus.Counter
	DecodeErrors prometheus.Counter
	Commands     *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	InFlight     prometheus.Gauge
	DBUp         prometheus.Gauge
	Reloads      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which tests use to run several servers in one
// process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bandstand",
			Name:      "connections_total",
			Help:      "Accepted client connections.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bandstand",
			Name:      "decode_errors_total",
			Help:      "Connections whose request could not be decoded.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bandstand",
			Name:      "commands_total",
			Help:      "Executed commands by name and outcome.",
		}, []string{"command", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bandstand",
			Name:      "command_duration_seconds",
			Help:      "Command execution time, including the wait for a worker.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bandstand",
			Name:      "executions_in_flight",
			Help:      "Commands currently holding a worker.",
		}),
		DBUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bandstand",
			Name:      "database_up",
			Help:      "1 while the database answers health checks.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bandstand",
			Name:      "reloads_total",
			Help:      "Collection reloads from the database by result.",
		}, []string{"result"}),
	}
	m.DBUp.Set(1)
	if reg != nil {
		reg.MustRegister(m.Connections, m.DecodeErrors, m.Commands, m.Latency, m.InFlight, m.DBUp, m.Reloads)
	}
	return m
}

// commandLabel keeps the label set bounded: names outside the catalog are
// counted as "unknown".
func commandLabel(name string) string {
	if _, ok := protocol.Lookup(name); ok {
		return name
	}
	return "unknown"
}

func outcomeLabel(resp protocol.Response) string {
	if resp.Failed() {
		return resp.Tag.String()
	}
	return "ok"
}
