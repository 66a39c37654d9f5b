package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	reviewEngine = "review_engine"

	// Allocation metrics
	allocationsTotal = "allocations_total"

	// Reputation metrics
	reputationAdjustmentsTotal = "reputation_adjustments_total"

	// Rebalance metrics
	rebalanceAssignmentsTotal = "rebalance_assignments_total"

	// Reroute metrics
	rerouteTransitionsTotal = "reroute_transitions_total"

	// Job metrics
	jobsTotal          = "jobs_total"
	jobsRunning        = "jobs_running"
	jobItemsTotal      = "job_items_total"
	notificationsTotal = "notifications_total"

	// Labels
	resultLabel    = "result"
	typeLabel      = "type"
	directionLabel = "direction"
	statusLabel    = "status"
)

/**
* Metrics definition
**/
var allocationsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reviewEngine,
		Name:      allocationsTotal,
		Help:      "number of initial queue allocations partitioned by result",
	},
	[]string{resultLabel},
)

var reputationAdjustmentsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reviewEngine,
		Name:      reputationAdjustmentsTotal,
		Help:      "number of reputation adjustments partitioned by direction",
	},
	[]string{directionLabel},
)

var rebalanceAssignmentsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reviewEngine,
		Name:      rebalanceAssignmentsTotal,
		Help:      "number of rebalance assignments partitioned by type and result",
	},
	[]string{typeLabel, resultLabel},
)

var rerouteTransitionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reviewEngine,
		Name:      rerouteTransitionsTotal,
		Help:      "number of reroute entries moved to a status",
	},
	[]string{statusLabel},
)

var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reviewEngine,
		Name:      jobsTotal,
		Help:      "number of background jobs partitioned by final status",
	},
	[]string{statusLabel},
)

var jobsRunningMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: reviewEngine,
		Name:      jobsRunning,
		Help:      "number of background jobs currently running",
	},
)

var jobItemsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reviewEngine,
		Name:      jobItemsTotal,
		Help:      "number of job items processed partitioned by result",
	},
	[]string{resultLabel},
)

var notificationsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: reviewEngine,
		Name:      notificationsTotal,
		Help:      "number of notifications handed to the writer partitioned by result",
	},
	[]string{resultLabel},
)

func IncreaseAllocationsTotalMetric(result string) {
	allocationsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func IncreaseReputationAdjustmentsMetric(increase bool) {
	direction := "down"
	if increase {
		direction = "up"
	}
	reputationAdjustmentsTotalMetric.With(prometheus.Labels{directionLabel: direction}).Inc()
}

func IncreaseRebalanceAssignmentsMetric(kind, result string) {
	labels := prometheus.Labels{
		typeLabel:   kind,
		resultLabel: result,
	}
	rebalanceAssignmentsTotalMetric.With(labels).Inc()
}

func IncreaseRerouteTransitionsMetric(status string) {
	rerouteTransitionsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func IncreaseJobsTotalMetric(status string) {
	jobsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func IncreaseJobsRunningMetric() {
	jobsRunningMetric.Inc()
}

func DecreaseJobsRunningMetric() {
	jobsRunningMetric.Dec()
}

func IncreaseJobItemsMetric(result string) {
	jobItemsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func IncreaseNotificationsMetric(result string) {
	notificationsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(allocationsTotalMetric)
	prometheus.MustRegister(reputationAdjustmentsTotalMetric)
	prometheus.MustRegister(rebalanceAssignmentsTotalMetric)
	prometheus.MustRegister(rerouteTransitionsTotalMetric)
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(jobsRunningMetric)
	prometheus.MustRegister(jobItemsTotalMetric)
	prometheus.MustRegister(notificationsTotalMetric)
}
