package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_cache_hits_total",
		Help: "Total number of cache hits",
	})

	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_cache_misses_total",
		Help: "Total number of cache misses, including lazy expiries",
	})

	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_cache_evictions_total",
		Help: "Total number of entries evicted for capacity",
	})

	entriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "callisto_cache_entries",
		Help: "Current number of cache entries",
	})
)
