// Package metrics holds the Prometheus collectors shared by the API and
// the scheduler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of chat requests by tenant and outcome",
		},
		[]string{"tenant", "outcome"},
	)

	ChatIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_intents_total",
			Help: "Detected intents on completed chat requests",
		},
		[]string{"tenant", "intent"},
	)

	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "End-to-end duration of chat requests",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"tenant"},
	)

	DocumentFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_document_fetches_total",
			Help: "Remote site document loads by kind and source (cache, remote, failed)",
		},
		[]string{"kind", "source"},
	)

	SiteRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_refreshes_total",
			Help: "Site cache refresh jobs by tenant and status",
		},
		[]string{"tenant", "status"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
