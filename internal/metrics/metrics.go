// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_clients",
		Help: "Currently connected websocket clients",
	})

	RealtimeEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Realtime events dropped because a buffer was full",
		},
		[]string{"stage"},
	)

	MediaUpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_upstream_failures_total",
			Help: "Failed calls to the media host by operation",
		},
		[]string{"operation"},
	)

	ReactionToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reaction_toggles_total",
			Help: "Reaction toggles by requested type and whether the reaction ended set or cleared",
		},
		[]string{"type", "result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notifications stored and pushed, by type",
		},
		[]string{"type"},
	)

	OrphanAssetsReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orphan_assets_reconciled_total",
		Help: "Orphaned media assets deleted by the reconciliation job",
	})
)
