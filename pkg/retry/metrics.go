package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callisto_retry_attempts_total",
		Help: "Retry waits scheduled, by failure class",
	}, []string{"class"})

	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callisto_retry_wait_seconds",
		Help:    "Duration of retry waits, reset waits included",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	exhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_retry_budget_exhausted_total",
		Help: "Total number of operations that exhausted the attempt budget",
	})
)
