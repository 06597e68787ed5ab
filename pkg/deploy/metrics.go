package deploy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_deploy_polls_total",
		Help: "Total number of deployment listing polls",
	})

	watchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callisto_deploy_watches_total",
		Help: "Deployment watches ended, by terminal state",
	}, []string{"state"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "callisto_deploy_verifications_total",
		Help: "Published content verifications, by outcome",
	}, []string{"outcome"})
)
