// Package metrics exposes Prometheus collectors for the token lifecycle and the activity pipeline.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "strava_proxy"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
)

var (
	tokenExchangeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "token",
		Name:      "exchanges_total",
		Help:      "Authorization code exchanges against the provider token endpoint.",
	}, []string{"outcome"})

	tokenRefreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "token",
		Name:      "refreshes_total",
		Help:      "Refresh token exchanges against the provider token endpoint.",
	}, []string{"outcome"})

	upstreamCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "calls_total",
		Help:      "Authenticated resource API calls by endpoint and status code.",
	}, []string{"endpoint", "status"})

	degradedDetailCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "degraded_details_total",
		Help:      "Activities returned as their summary because the detail fetch failed.",
	})

	fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of a full list and detail fetch.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(tokenExchangeCounter, tokenRefreshCounter, upstreamCallCounter, degradedDetailCounter, fetchDuration)
}

// RecordTokenExchange counts a code exchange by outcome.
func RecordTokenExchange(outcome string) {
	tokenExchangeCounter.WithLabelValues(outcome).Inc()
}

// RecordTokenRefresh counts a refresh by outcome.
func RecordTokenRefresh(outcome string) {
	tokenRefreshCounter.WithLabelValues(outcome).Inc()
}

// RecordUpstreamCall counts a resource call. A status of 0 means the request never got a response.
func RecordUpstreamCall(endpoint string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	upstreamCallCounter.WithLabelValues(endpoint, label).Inc()
}

// RecordDegradedDetail counts a summary substituted for its detail.
func RecordDegradedDetail() {
	degradedDetailCounter.Inc()
}

// ObserveFetch records how long a pipeline fetch took.
func ObserveFetch(seconds float64) {
	fetchDuration.Observe(seconds)
}
