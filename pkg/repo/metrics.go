package repo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	readsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callisto_repo_reads_total",
		Help: "File reads served, by source",
	}, []string{"source"})

	writesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_repo_writes_total",
		Help: "Total number of single-file writes",
	})

	commitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_repo_commits_total",
		Help: "Total number of multi-file commits",
	})

	budgetHoldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_repo_budget_holds_total",
		Help: "Requests held because the server-reported budget was exhausted",
	})
)
