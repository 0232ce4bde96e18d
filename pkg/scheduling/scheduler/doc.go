/*
Package scheduler triggers recurring parameter sweeps.

A Scheduler holds a set of named sweeps, each bound to an interval or a cron
expression, and submits them to a worker pool when due. Typical use is a
nightly re-run of a preprocessing workflow over a growing dataset:

	s := scheduler.New()
	if err := s.Start(); err != nil {
		log.Fatal(err)
	}
	defer func() { <-s.Stop() }()

	err := s.ScheduleCron("nightly-smoothing", "@daily", workerpool.TaskFunc(
		func(ctx context.Context) error {
			_, err := buildSmoothingWorkflow().Run(ctx, workflow.RunConfig{
				Plugin: "multiproc",
			})
			return err
		}))

Sweep registrations and triggers are counted per scheduler name in the
metrics registry.
*/
package scheduler
