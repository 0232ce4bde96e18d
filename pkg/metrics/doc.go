// Package metrics provides Prometheus instrumentation for voxflow components.
//
// # Quick Start
//
// Pass a registry through workflow.RunConfig to instrument a run:
//
//	registry := metrics.NewRegistry(prometheus.DefaultRegisterer)
//	report, err := wf.Run(ctx, workflow.RunConfig{
//		Plugin:  "multiproc",
//		Procs:   4,
//		Metrics: registry,
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Available Metrics
//
// Engine:
//
//   - voxflow_engine_workflow_runs_total{workflow, plugin}
//   - voxflow_engine_workflow_failures_total{workflow, plugin}
//   - voxflow_engine_branches_expanded{workflow}
//   - voxflow_engine_nodes_executed_total{workflow, node}
//   - voxflow_engine_nodes_failed_total{workflow, node}
//   - voxflow_engine_nodes_skipped_total{workflow, node}
//   - voxflow_engine_node_duration_seconds{workflow, node}
//
// Worker pool:
//
//   - voxflow_workerpool_size{pool_name}
//   - voxflow_workerpool_active_workers{pool_name}
//   - voxflow_workerpool_queued_tasks{pool_name}
//   - voxflow_workerpool_tasks_executed_total{pool_name}
//   - voxflow_workerpool_tasks_failed_total{pool_name}
//   - voxflow_workerpool_task_duration_seconds{pool_name}
//
// Scheduler:
//
//   - voxflow_scheduler_sweeps_scheduled_total{scheduler_name}
//   - voxflow_scheduler_sweeps_triggered_total{scheduler_name}
//
// The node label is the declared node name; branch instances of the same node
// share a label value so cardinality stays bounded by the graph, not by the
// sweep size.
package metrics
