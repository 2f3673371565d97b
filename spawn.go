package fetchq

// Spawner starts a job's run function on its own execution context.
// The scheduler guarantees run is invoked at most once; when Spawn
// returns an error the job never runs and its admission slot is
// released immediately.
type Spawner interface {
	Spawn(run func()) error
}

// goSpawner is the default Spawner. Plain goroutines cannot fail to
// start.
type goSpawner struct{}

func (goSpawner) Spawn(run func()) error {
	go run()
	return nil
}
