package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planora_reminder_sweeps_total",
		Help: "Number of reminder sweep runs.",
	})

	SweepsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planora_reminder_sweeps_skipped_total",
		Help: "Sweep ticks skipped because the previous sweep was still running.",
	})

	RemindersRetired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planora_reminders_retired_total",
		Help: "Reminders deleted after being processed by a sweep.",
	})

	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planora_chat_messages_relayed_total",
		Help: "Chat messages persisted and broadcast to a room.",
	})

	PushSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planora_push_notifications_sent_total",
		Help: "Push notifications submitted to the gateway.",
	})

	PushDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planora_push_notifications_dropped_total",
		Help: "Push notifications dropped before submission (invalid token).",
	})

	PushChunkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planora_push_chunk_failures_total",
		Help: "Push gateway chunk submissions that failed.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
