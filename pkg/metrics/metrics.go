package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions counts email submissions by outcome (verified|pending|invalid|error).
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emailgate_submissions_total",
			Help: "Total number of email submissions",
		},
		[]string{"outcome"},
	)

	// Verifications counts token verification attempts by result (success|invalid).
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emailgate_verifications_total",
			Help: "Total number of verification link redemptions",
		},
		[]string{"result"},
	)

	// GatewayRedirects counts successful hand-offs to the hotspot login endpoint
	// by entry path (token|google|credentials).
	GatewayRedirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emailgate_gateway_redirects_total",
			Help: "Total number of redirects issued to the hotspot gateway",
		},
		[]string{"path"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emailgate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
