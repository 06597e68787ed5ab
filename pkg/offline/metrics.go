package offline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	offlineGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "callisto_offline_mode",
		Help: "1 while the client is in offline mode, 0 otherwise",
	})

	probesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "callisto_offline_probes_total",
		Help: "Total number of recovery probes attempted",
	})
)
