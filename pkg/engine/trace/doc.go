/*
Package trace records workflow run events as JSON lines.

A Writer plugs into workflow.RunConfig.Trace and logs one object per engine
event: run start and finish, and per-instance start, finish, failure, and
skip, each tagged with its node and branch. The file is append-ordered, so a
sweep's execution can be replayed or diffed after the fact.

	tw, err := trace.New("/data/work/smoothflow/run.jsonl")
	if err != nil {
		log.Fatal(err)
	}
	defer tw.Close()

	report, err := wf.Run(ctx, workflow.RunConfig{
		Plugin: "multiproc",
		Trace:  tw,
	})

Emit is non-blocking; a full queue drops events rather than slow the run, and
Dropped reports how many were lost.
*/
package trace
