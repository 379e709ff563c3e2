// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "propdesk"

var (
	// ResourceFetches counts aggregated resource fetches by outcome (ok, fallback).
	ResourceFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resource_fetch_total",
		Help:      "Dashboard resource fetches by resource and outcome.",
	}, []string{"resource", "outcome"})

	// SnapshotDuration observes how long a full aggregation pass takes.
	SnapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "snapshot_duration_seconds",
		Help:      "Time from fan-out to snapshot publication.",
		Buckets:   prometheus.DefBuckets,
	})

	// Reconciliations counts contact reconciliations by outcome.
	Reconciliations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconciliation_total",
		Help:      "Directory/conversation reconciliations by outcome.",
	}, []string{"outcome"})

	// MessageSends counts optimistic sends by outcome (confirmed, rolled_back, rejected).
	MessageSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "message_send_total",
		Help:      "Optimistic message sends by outcome.",
	}, []string{"outcome"})

	// Notifications counts notifications pushed by level.
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_total",
		Help:      "Notifications pushed to dashboard users by level.",
	}, []string{"level"})

	// ActiveViews tracks live dashboard views.
	ActiveViews = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_views",
		Help:      "Dashboard views currently held in memory.",
	})
)

func init() {
	prometheus.MustRegister(
		ResourceFetches,
		SnapshotDuration,
		Reconciliations,
		MessageSends,
		Notifications,
		ActiveViews,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
