package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voxflow/voxflow/pkg/metrics"
	"github.com/voxflow/voxflow/pkg/scheduling/workerpool"
)

// Sweep describes one recurring workflow run registered with a Scheduler.
type Sweep struct {
	ID       string
	NextRun  time.Time
	Interval time.Duration // zero for cron-scheduled sweeps
	Created  time.Time
}

// Scheduler re-executes parameter sweeps on a recurring schedule, e.g. a
// nightly smoothing run over whatever subjects landed during the day.
type Scheduler interface {
	// ScheduleEvery registers a sweep that runs every interval, starting
	// one interval from now.
	ScheduleEvery(id string, interval time.Duration, run workerpool.Task) error

	// ScheduleCron registers a sweep driven by a cron expression.
	// Standard five-field format plus descriptors like "@daily".
	ScheduleCron(id string, cronExpr string, run workerpool.Task) error

	// Cancel removes a sweep. Returns false if the id is unknown.
	Cancel(id string) bool

	// List returns the registered sweeps ordered by next run time.
	List() []Sweep

	// Start begins triggering sweeps.
	Start() error

	// Stop halts triggering. The returned channel closes once the
	// scheduler's own worker pool (if any) has drained.
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// Name labels this scheduler in metrics. Defaults to "default".
	Name string

	// WorkerPool runs triggered sweeps. When nil the scheduler owns a
	// small pool and shuts it down on Stop.
	WorkerPool workerpool.Pool

	// Location for cron expression evaluation. Defaults to time.Local.
	Location *time.Location

	// TickInterval is how often due sweeps are checked for. Defaults
	// to 1s; sweeps recur on human timescales, not milliseconds.
	TickInterval time.Duration

	// MaxSweeps bounds the number of registered sweeps. Defaults to 1000.
	MaxSweeps int

	// Metrics receives scheduling counters. Defaults to the package
	// default registry.
	Metrics *metrics.Registry
}

type scheduledSweep struct {
	id       string
	run      workerpool.Task
	nextRun  time.Time
	interval time.Duration
	schedule cron.Schedule
	created  time.Time
}

type scheduler struct {
	name         string
	pool         workerpool.Pool
	ownPool      bool
	location     *time.Location
	tickInterval time.Duration
	maxSweeps    int
	registry     *metrics.Registry
	cronParser   cron.Parser

	mu      sync.RWMutex
	sweeps  map[string]*scheduledSweep
	ticker  *time.Ticker
	done    chan struct{}
	running bool
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) Scheduler {
	name := cfg.Name
	if name == "" {
		name = "default"
	}

	pool := cfg.WorkerPool
	ownPool := false
	if pool == nil {
		pool = workerpool.New(2, 16)
		ownPool = true
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = time.Second
	}

	maxSweeps := cfg.MaxSweeps
	if maxSweeps <= 0 {
		maxSweeps = 1000
	}

	registry := cfg.Metrics
	if registry == nil {
		registry = metrics.DefaultRegistry
	}

	return &scheduler{
		name:         name,
		pool:         pool,
		ownPool:      ownPool,
		location:     location,
		tickInterval: tickInterval,
		maxSweeps:    maxSweeps,
		registry:     registry,
		cronParser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		sweeps:       make(map[string]*scheduledSweep),
		done:         make(chan struct{}),
	}
}

func (s *scheduler) ScheduleEvery(id string, interval time.Duration, run workerpool.Task) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", interval)
	}
	now := time.Now()
	return s.add(&scheduledSweep{
		id:       id,
		run:      run,
		nextRun:  now.Add(interval),
		interval: interval,
		created:  now,
	})
}

func (s *scheduler) ScheduleCron(id string, cronExpr string, run workerpool.Task) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	now := time.Now()
	return s.add(&scheduledSweep{
		id:       id,
		run:      run,
		nextRun:  schedule.Next(now.In(s.location)),
		schedule: schedule,
		created:  now,
	})
}

func (s *scheduler) add(sweep *scheduledSweep) error {
	if sweep.id == "" {
		return fmt.Errorf("sweep ID cannot be empty")
	}
	if sweep.run == nil {
		return fmt.Errorf("sweep task cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sweeps[sweep.id]; exists {
		return fmt.Errorf("sweep %q already scheduled; cancel it first", sweep.id)
	}
	if len(s.sweeps) >= s.maxSweeps {
		return fmt.Errorf("cannot schedule sweep: limit of %d reached", s.maxSweeps)
	}

	s.sweeps[sweep.id] = sweep
	if s.registry != nil {
		s.registry.SweepsScheduled.WithLabelValues(s.name).Inc()
	}
	return nil
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sweeps[id]; exists {
		delete(s.sweeps, id)
		return true
	}
	return false
}

func (s *scheduler) List() []Sweep {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sweeps := make([]Sweep, 0, len(s.sweeps))
	for _, sw := range s.sweeps {
		sweeps = append(sweeps, Sweep{
			ID:       sw.id,
			NextRun:  sw.nextRun,
			Interval: sw.interval,
			Created:  sw.created,
		})
	}
	sort.Slice(sweeps, func(i, j int) bool {
		return sweeps[i].NextRun.Before(sweeps[j].NextRun)
	})
	return sweeps
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}
	s.running = true
	s.ticker = time.NewTicker(s.tickInterval)

	go s.loop(s.ticker, s.done)
	return nil
}

func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.done)
		s.ticker.Stop()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if s.ownPool {
			<-s.pool.Shutdown()
		}
	}()
	return stopped
}

func (s *scheduler) loop(ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.triggerDue()
		}
	}
}

// triggerDue submits every sweep whose time has come and computes its next
// occurrence. Recurrence is computed from now, not from nextRun, so a stalled
// pool does not cause a burst of catch-up runs.
func (s *scheduler) triggerDue() {
	now := time.Now()

	s.mu.Lock()
	var due []*scheduledSweep
	for _, sw := range s.sweeps {
		if now.Before(sw.nextRun) {
			continue
		}
		due = append(due, sw)
		if sw.schedule != nil {
			sw.nextRun = sw.schedule.Next(now.In(s.location))
		} else {
			sw.nextRun = now.Add(sw.interval)
		}
	}
	s.mu.Unlock()

	for _, sw := range due {
		if err := s.pool.Submit(sw.run); err != nil {
			continue
		}
		if s.registry != nil {
			s.registry.SweepsTriggered.WithLabelValues(s.name).Inc()
		}
	}
}
