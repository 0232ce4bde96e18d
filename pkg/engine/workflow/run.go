package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxflow/voxflow/pkg/engine/node"
	"github.com/voxflow/voxflow/pkg/metrics"
)

// Locker fences a run off a shared working directory. See engine/worklock
// for the Redis implementation.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// EventSink receives run lifecycle events. See engine/trace for the
// JSON-lines implementation.
type EventSink interface {
	Emit(event any)
}

// Event is the run lifecycle record emitted to an EventSink.
type Event struct {
	Time     time.Time `json:"time"`
	RunID    string    `json:"run_id"`
	Workflow string    `json:"workflow"`
	Kind     string    `json:"kind"`
	Node     string    `json:"node,omitempty"`
	Branch   string    `json:"branch,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Event kinds.
const (
	EventRunStarted       = "run_started"
	EventRunFinished      = "run_finished"
	EventInstanceStarted  = "instance_started"
	EventInstanceFinished = "instance_finished"
	EventInstanceFailed   = "instance_failed"
	EventInstanceSkipped  = "instance_skipped"
)

// RunConfig configures one workflow execution.
type RunConfig struct {
	// Plugin names the executor: "linear" (default) or "multiproc".
	Plugin string

	// Procs is the multiproc worker count. Defaults to runtime.NumCPU().
	Procs int

	// Logger receives structured run logs. Defaults to a discard logger.
	Logger *slog.Logger

	// Metrics, when set, receives Prometheus instrumentation for the run.
	Metrics *metrics.Registry

	// Lock, when set, is acquired before any instance executes and released
	// when the run finishes.
	Lock Locker

	// Trace, when set, receives run lifecycle events.
	Trace EventSink

	// OnInstanceStart is called before an instance executes.
	OnInstanceStart func(id string)

	// OnInstanceComplete is called after an instance finishes, fails, or
	// is skipped.
	OnInstanceComplete func(result NodeResult)
}

// NodeResult is the outcome of one instance execution.
type NodeResult struct {
	// Node is the declared node name.
	Node string

	// Branch is the branch directory name ("" for unswept nodes).
	Branch string

	// Dir is the instance's output directory.
	Dir string

	// Outputs holds the interface's output port values.
	Outputs node.Values

	// Error is the instance failure, if any.
	Error error

	// Skipped is true when the instance never ran because an upstream
	// instance failed.
	Skipped bool

	// StartTime is when the instance started.
	StartTime time.Time

	// EndTime is when the instance finished.
	EndTime time.Time

	// Duration is how long the instance took.
	Duration time.Duration
}

// RunReport is the outcome of a workflow run.
type RunReport struct {
	RunID     string
	Workflow  string
	Plugin    string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Results   []NodeResult
}

// Failed returns the results of instances that returned an error.
func (r *RunReport) Failed() []NodeResult {
	var failed []NodeResult
	for _, res := range r.Results {
		if res.Error != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Skipped returns the results of instances skipped after upstream failures.
func (r *RunReport) Skipped() []NodeResult {
	var skipped []NodeResult
	for _, res := range r.Results {
		if res.Skipped {
			skipped = append(skipped, res)
		}
	}
	return skipped
}

// Err aggregates all instance failures, or returns nil for a clean run.
func (r *RunReport) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Error != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", res.Node, res.Branch, res.Error))
		}
	}
	return errors.Join(errs...)
}

// Execution carries the expanded instances and shared state of one run.
// Executors drive it; RunInstance and Skip record results.
type Execution struct {
	wf     *Workflow
	cfg    RunConfig
	runID  string
	logger *slog.Logger
	procs  int

	instances []*Instance

	mu      sync.Mutex
	outputs map[*Instance]node.Values
	results []NodeResult
}

// Instances returns the expanded instances in topological order.
func (ex *Execution) Instances() []*Instance {
	return slices.Clone(ex.instances)
}

// Procs returns the configured worker count for parallel executors.
func (ex *Execution) Procs() int { return ex.procs }

// Metrics returns the run's metrics registry, or nil when uninstrumented.
func (ex *Execution) Metrics() *metrics.Registry { return ex.cfg.Metrics }

// Logger returns the run's structured logger.
func (ex *Execution) Logger() *slog.Logger { return ex.logger }

// Run validates, expands, and executes the workflow with the named executor
// plugin. The returned report always covers every instance; the error
// aggregates executor-level failures and instance failures.
func (w *Workflow) Run(ctx context.Context, cfg RunConfig) (*RunReport, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	if cfg.Plugin == "" {
		cfg.Plugin = "linear"
	}
	if cfg.Procs <= 0 {
		cfg.Procs = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	executor, err := lookupExecutor(cfg.Plugin)
	if err != nil {
		return nil, err
	}

	instances, err := w.expand()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := cfg.Logger.With("workflow", w.name, "run_id", runID, "plugin", cfg.Plugin)

	if cfg.Metrics != nil {
		cfg.Metrics.WorkflowRuns.WithLabelValues(w.name, cfg.Plugin).Inc()
		cfg.Metrics.BranchesExpanded.WithLabelValues(w.name).Set(float64(len(instances)))
	}

	if cfg.Lock != nil {
		if err := cfg.Lock.Lock(ctx); err != nil {
			return nil, fmt.Errorf("acquiring work directory lock: %w", err)
		}
		defer func() {
			if err := cfg.Lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("releasing work directory lock", "error", err)
			}
		}()
	}

	ex := &Execution{
		wf:        w,
		cfg:       cfg,
		runID:     runID,
		logger:    logger,
		procs:     cfg.Procs,
		instances: instances,
		outputs:   make(map[*Instance]node.Values, len(instances)),
		results:   make([]NodeResult, 0, len(instances)),
	}

	start := time.Now()
	logger.Info("run started", "instances", len(instances))
	ex.emit(Event{Kind: EventRunStarted})

	execErr := executor.Execute(ctx, ex)

	report := &RunReport{
		RunID:     runID,
		Workflow:  w.name,
		Plugin:    cfg.Plugin,
		StartTime: start,
		EndTime:   time.Now(),
		Results:   ex.resultsCopy(),
	}
	report.Duration = report.EndTime.Sub(report.StartTime)

	runErr := errors.Join(execErr, report.Err())
	if runErr != nil && cfg.Metrics != nil {
		cfg.Metrics.WorkflowFailures.WithLabelValues(w.name, cfg.Plugin).Inc()
	}

	logger.Info("run finished",
		"duration", report.Duration,
		"failed", len(report.Failed()),
		"skipped", len(report.Skipped()))
	ex.emit(Event{Kind: EventRunFinished, Error: errString(runErr)})

	return report, runErr
}

// RunInstance executes one instance: it creates the instance's output
// directory, resolves its inputs, and invokes the node's interface.
// Safe for concurrent use by parallel executors.
func (ex *Execution) RunInstance(ctx context.Context, inst *Instance) error {
	dir := ex.instanceDir(inst)
	branch := inst.Branch().Dir()
	name := inst.Node().Name()
	logger := ex.logger.With("node", name, "branch", branch)

	result := NodeResult{
		Node:      name,
		Branch:    branch,
		Dir:       dir,
		StartTime: time.Now(),
	}

	if ex.cfg.OnInstanceStart != nil {
		ex.cfg.OnInstanceStart(inst.ID())
	}
	ex.emit(Event{Kind: EventInstanceStarted, Node: name, Branch: branch})
	logger.Info("instance started")

	outputs, err := ex.runInterface(ctx, inst, dir, logger)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Outputs = outputs
	result.Error = err

	ex.mu.Lock()
	if err == nil {
		ex.outputs[inst] = outputs
	}
	ex.results = append(ex.results, result)
	ex.mu.Unlock()

	if ex.cfg.Metrics != nil {
		ex.cfg.Metrics.NodesExecuted.WithLabelValues(ex.wf.name, name).Inc()
		ex.cfg.Metrics.NodeDuration.WithLabelValues(ex.wf.name, name).Observe(result.Duration.Seconds())
		if err != nil {
			ex.cfg.Metrics.NodesFailed.WithLabelValues(ex.wf.name, name).Inc()
		}
	}

	if err != nil {
		logger.Error("instance failed", "error", err, "duration", result.Duration)
		ex.emit(Event{Kind: EventInstanceFailed, Node: name, Branch: branch, Error: err.Error()})
	} else {
		logger.Info("instance finished", "duration", result.Duration)
		ex.emit(Event{Kind: EventInstanceFinished, Node: name, Branch: branch})
	}

	if ex.cfg.OnInstanceComplete != nil {
		ex.cfg.OnInstanceComplete(result)
	}

	return err
}

// Skip records an instance as skipped because an upstream instance failed.
func (ex *Execution) Skip(inst *Instance) {
	branch := inst.Branch().Dir()
	name := inst.Node().Name()

	result := NodeResult{
		Node:    name,
		Branch:  branch,
		Dir:     ex.instanceDir(inst),
		Skipped: true,
	}

	ex.mu.Lock()
	ex.results = append(ex.results, result)
	ex.mu.Unlock()

	if ex.cfg.Metrics != nil {
		ex.cfg.Metrics.NodesSkipped.WithLabelValues(ex.wf.name, name).Inc()
	}

	ex.logger.Warn("instance skipped", "node", name, "branch", branch)
	ex.emit(Event{Kind: EventInstanceSkipped, Node: name, Branch: branch})

	if ex.cfg.OnInstanceComplete != nil {
		ex.cfg.OnInstanceComplete(result)
	}
}

// runInterface prepares the output directory and inputs, then calls the
// node's interface, checking that every declared output was produced.
func (ex *Execution) runInterface(ctx context.Context, inst *Instance, dir string, logger *slog.Logger) (node.Values, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating instance directory: %w", err)
	}

	inputs, err := ex.resolveInputs(inst)
	if err != nil {
		return nil, err
	}

	outputs, err := inst.Node().Interface().Run(ctx, node.Runtime{Dir: dir, Logger: logger}, inputs)
	if err != nil {
		return nil, err
	}

	for _, port := range inst.Node().Interface().OutputNames() {
		if _, ok := outputs[port]; !ok {
			return nil, fmt.Errorf("interface did not produce declared output %q", port)
		}
	}
	return outputs, nil
}

// resolveInputs merges an instance's static inputs, its own branch
// assignments, and the outputs of its upstream instances.
func (ex *Execution) resolveInputs(inst *Instance) (node.Values, error) {
	name := inst.Node().Name()
	inputs := inst.Node().Inputs()

	for _, a := range inst.Branch() {
		if a.Owner == name {
			inputs[a.Param] = a.Value
		}
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	for _, conn := range ex.wf.conns {
		if conn.DstNode != name {
			continue
		}
		dep := ex.findDep(inst, conn.SrcNode)
		if dep == nil {
			return nil, fmt.Errorf("resolving %s.%s: no upstream instance of %q", name, conn.DstPort, conn.SrcNode)
		}
		out, ok := ex.outputs[dep]
		if !ok {
			return nil, fmt.Errorf("resolving %s.%s: upstream instance %s has no recorded outputs", name, conn.DstPort, dep.ID())
		}
		inputs[conn.DstPort] = out[conn.SrcPort]
	}
	return inputs, nil
}

// findDep locates the instance's dependency on the named upstream node.
func (ex *Execution) findDep(inst *Instance, upstream string) *Instance {
	for _, dep := range inst.Deps() {
		if dep.Node().Name() == upstream {
			return dep
		}
	}
	return nil
}

// instanceDir is workdir/<workflow>/<branchdir>/<node>, with the branch
// level omitted for unswept instances.
func (ex *Execution) instanceDir(inst *Instance) string {
	if branch := inst.Branch().Dir(); branch != "" {
		return filepath.Join(ex.wf.workdir, ex.wf.name, branch, inst.Node().Name())
	}
	return filepath.Join(ex.wf.workdir, ex.wf.name, inst.Node().Name())
}

// emit sends an event to the configured sink, filling the shared fields.
func (ex *Execution) emit(ev Event) {
	if ex.cfg.Trace == nil {
		return
	}
	ev.Time = time.Now()
	ev.RunID = ex.runID
	ev.Workflow = ex.wf.name
	ex.cfg.Trace.Emit(ev)
}

func (ex *Execution) resultsCopy() []NodeResult {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return slices.Clone(ex.results)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
