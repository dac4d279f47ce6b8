package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var jobsFinished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_finished_total",
		Help: "Jobs that reached a terminal state, by type and outcome.",
	},
	[]string{"type", "status"},
)

var jobsReconciled = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "jobs_reconciled_total",
		Help: "Stuck RUNNING jobs failed by the reconciliation sweep.",
	},
)
