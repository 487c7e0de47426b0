// Package metrics exposes the service counters scraped at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatpro_messages_sent_total",
		Help: "Messages accepted for delivery, by channel kind.",
	}, []string{"kind"})

	MessagesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatpro_messages_rejected_total",
		Help: "Message sends rejected, by reason.",
	}, []string{"reason"})

	BlocksApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatpro_blocks_applied_total",
		Help: "User blocks applied, by trigger source.",
	}, []string{"trigger"})

	ReportsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatpro_reports_filed_total",
		Help: "Abuse reports filed.",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatpro_ws_subscribers",
		Help: "Currently connected websocket subscribers.",
	})
)
