package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"provider", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayswap_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Orchestration outcomes: rejected, succeeded, failed
	SwapOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_swap_outcomes_total",
			Help: "Total number of swap orchestration outcomes",
		},
		[]string{"provider", "outcome"},
	)

	SwapRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_swap_rejections_total",
			Help: "Swap rejections by reason",
		},
		[]string{"reason"},
	)

	InvariantFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayswap_invariant_faults_total",
		Help: "Successful swaps that failed the sponsor safety check",
	})

	AuditAppendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayswap_audit_append_errors_total",
		Help: "Audit entries that could not be persisted",
	})

	// Upstream provider calls
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_provider_requests_total",
			Help: "Total number of requests to bridge providers",
		},
		[]string{"provider", "endpoint", "status"},
	)

	// Executor submissions by chain family and outcome
	ExecutorSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_executor_submissions_total",
			Help: "Transactions submitted by executors",
		},
		[]string{"family", "status"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayswap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayswap_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
