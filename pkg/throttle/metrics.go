package throttle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_throttle_admits_total",
		Help: "Total number of requests admitted by the local throttle",
	})

	waitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_throttle_waits_total",
		Help: "Total number of throttle-imposed delays",
	})

	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "callisto_throttle_wait_seconds",
		Help:    "Duration of throttle-imposed delays",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
