package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stageDial      = "dial"
	stageHandshake = "handshake"
	stageCopy      = "copy"
)

var (
	connectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_connections_total",
		Help: "Connections accepted, by endpoint listen address.",
	}, []string{"endpoint"})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_active_connections",
		Help: "Relay sessions currently in progress.",
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_errors_total",
		Help: "Relay sessions that failed, by stage.",
	}, []string{"stage"})

	bytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bytes_total",
		Help: "Bytes relayed; up is client to remote, down is remote to client.",
	}, []string{"direction"})
)
