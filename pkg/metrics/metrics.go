// Package metrics provides Prometheus instrumentation for voxflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for voxflow components.
type Registry struct {
	// Engine Metrics
	WorkflowRuns     *prometheus.CounterVec
	WorkflowFailures *prometheus.CounterVec
	BranchesExpanded *prometheus.GaugeVec
	NodesExecuted    *prometheus.CounterVec
	NodesFailed      *prometheus.CounterVec
	NodesSkipped     *prometheus.CounterVec
	NodeDuration     *prometheus.HistogramVec

	// Worker Pool Metrics
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolActive *prometheus.GaugeVec
	WorkerPoolQueued *prometheus.GaugeVec
	TasksExecuted    *prometheus.CounterVec
	TasksFailed      *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec

	// Scheduler Metrics
	SweepsScheduled *prometheus.CounterVec
	SweepsTriggered *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by voxflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		WorkflowRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "engine",
				Name:      "workflow_runs_total",
				Help:      "Total number of workflow runs started",
			},
			[]string{"workflow", "plugin"},
		),

		WorkflowFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "engine",
				Name:      "workflow_failures_total",
				Help:      "Total number of workflow runs that finished with failed nodes",
			},
			[]string{"workflow", "plugin"},
		),

		BranchesExpanded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "voxflow",
				Subsystem: "engine",
				Name:      "branches_expanded",
				Help:      "Number of execution instances the last expansion produced",
			},
			[]string{"workflow"},
		),

		NodesExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "engine",
				Name:      "nodes_executed_total",
				Help:      "Total number of node instances executed",
			},
			[]string{"workflow", "node"},
		),

		NodesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "engine",
				Name:      "nodes_failed_total",
				Help:      "Total number of node instances that returned an error",
			},
			[]string{"workflow", "node"},
		),

		NodesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "engine",
				Name:      "nodes_skipped_total",
				Help:      "Total number of node instances skipped because an upstream instance failed",
			},
			[]string{"workflow", "node"},
		),

		NodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "voxflow",
				Subsystem: "engine",
				Name:      "node_duration_seconds",
				Help:      "Time spent executing node instances",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"workflow", "node"},
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "voxflow",
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "voxflow",
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of active workers",
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "voxflow",
				Subsystem: "workerpool",
				Name:      "queued_tasks",
				Help:      "Number of queued tasks",
			},
			[]string{"pool_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "workerpool",
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "workerpool",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that failed",
			},
			[]string{"pool_name"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "voxflow",
				Subsystem: "workerpool",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		SweepsScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "scheduler",
				Name:      "sweeps_scheduled_total",
				Help:      "Total number of recurring sweeps registered",
			},
			[]string{"scheduler_name"},
		),

		SweepsTriggered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "voxflow",
				Subsystem: "scheduler",
				Name:      "sweeps_triggered_total",
				Help:      "Total number of scheduled sweep executions triggered",
			},
			[]string{"scheduler_name"},
		),
	}
}
