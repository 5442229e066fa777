package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	notificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Notifications accepted by the mail transport.",
	})
	notificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "notify",
		Name:      "failed_total",
		Help:      "Failed notification attempts, by kind.",
	}, []string{"kind"})
	notificationsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devwatch",
		Subsystem: "notify",
		Name:      "skipped_total",
		Help:      "Notifications not attempted, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(notificationsSent, notificationsFailed, notificationsSkipped)
}
