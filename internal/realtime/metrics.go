package realtime

import "github.com/prometheus/client_golang/prometheus"

// Event outcomes.
const (
	outcomeHandled   = "handled"
	outcomeDropped   = "dropped"
	outcomeFailed    = "failed"
	outcomeForbidden = "forbidden"
)

var (
	// wsConnections gauges open websocket connections by role.
	wsConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agent_ws_connections",
			Help: "Current number of websocket connections.",
		},
		[]string{"role"},
	)

	// wsEvents counts client events by name and outcome. Unknown event
	// names are folded into "unknown" to bound cardinality.
	wsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_ws_events_total",
			Help: "Client websocket events by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	// wsSendDropped counts frames dropped because a client queue was full.
	wsSendDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_ws_send_dropped_total",
			Help: "Frames dropped because the client send queue was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsEvents, wsSendDropped)
}
