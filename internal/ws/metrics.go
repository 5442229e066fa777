package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "devwatch",
		Subsystem: "ws",
		Name:      "connected_clients",
		Help:      "Push connections currently registered with the hub.",
	})
	messagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "ws",
		Name:      "messages_sent_total",
		Help:      "Messages handed to a connection's send queue.",
	})
	sendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "ws",
		Name:      "send_failures_total",
		Help:      "Failed deliveries, by reason. Each failure drops the connection.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(connectedClients, messagesSent, sendFailures)
}
