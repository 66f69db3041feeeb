package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msggw_deliveries_total",
			Help: "Resolved deliveries by channel and terminal status",
		},
		[]string{"channel", "status"},
	)

	AttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msggw_delivery_attempts_total",
			Help: "Channel adapter attempts by channel and outcome",
		},
		[]string{"channel", "outcome"}, // ok|retryable|permanent
	)

	OutboxPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "msggw_outbox_published_total",
			Help: "Outbox events published to Kafka",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		DeliveriesTotal,
		AttemptsTotal,
		OutboxPublishedTotal,
	)
}
