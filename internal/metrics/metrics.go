// Package metrics holds the Prometheus collectors exported by the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "intrusionbot"

type Metrics struct {
	ActiveWatchers         prometheus.Gauge
	NotificationsDelivered prometheus.Counter
	ResetFailures          prometheus.Counter
	FetchFailures          prometheus.Counter
	MessagesHandled        *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a private registry,
// which keeps repeated construction in tests from panicking.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		ActiveWatchers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_watchers",
			Help:      "Number of users with a live notification watcher.",
		}),
		NotificationsDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Motion notifications delivered to chat sessions.",
		}),
		ResetFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_reset_failures_total",
			Help:      "Failed writes clearing the notify flag after delivery.",
		}),
		FetchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_fetch_failures_total",
			Help:      "Images that could not be resolved or downloaded.",
		}),
		MessagesHandled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "User messages handled, by recognized intent.",
		}, []string{"intent"}),
	}
}
