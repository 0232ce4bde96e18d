/*
Package worklock provides a Redis-backed lock fencing concurrent workflow
runs off a shared work directory.

Two engines expanding sweeps into the same workdir would interleave writes in
the same branch directories. When runs can start from more than one host or
process, configure a lock and pass it through workflow.RunConfig:

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	lock, err := worklock.New(worklock.Config{
		Redis: client,
		Key:   "voxflow:lock:/data/work/smoothflow",
	})
	if err != nil {
		log.Fatal(err)
	}

	report, err := wf.Run(ctx, workflow.RunConfig{
		Plugin: "multiproc",
		Lock:   lock,
	})

Acquisition is non-blocking: if another run holds the lock, Run fails fast
with ErrLockHeld. The holder refreshes the key's TTL in the background, so a
crashed run frees the directory after at most one TTL.
*/
package worklock
