package conflict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_conflict_scans_total",
		Help: "Total number of branch conflict scans",
	})

	conflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callisto_conflicts_detected_total",
		Help: "Conflicts detected, by kind",
	}, []string{"kind"})

	autoMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_conflict_auto_merges_total",
		Help: "Total number of automatic catch-up merges performed",
	})
)
