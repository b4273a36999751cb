// Package runner manages the population of virtual users for one load run.
//
// A [Runner] ramps concurrency up to a target at a configured spawn rate,
// tracks the liveness of every user it created, and tears the whole
// population down on a stop signal. No virtual user outlives its runner.
//
// # Lifecycle
//
//	r := runner.New(opts)
//	if err := r.Start(ctx); err != nil { ... }
//	// ... later, or from a timer:
//	r.Stop()
//	r.Await()
//
// Stop is idempotent and safe to call concurrently from a deadline timer and
// an external caller; exactly one teardown happens. Stop broadcasts
// cancellation to every user, then waits for them to terminate, bounded by
// the grace period. Users that do not terminate in time are abandoned and
// logged as warnings rather than awaited indefinitely, so a hung interaction
// cannot wedge shutdown.
//
// # Spawn pacing
//
// Users are spawned at [Options.SpawnRate] per second using a rate.Limiter.
// If the run deadline fires before the target concurrency is reached, the
// ramp is simply cut short by the stop signal. At most [Options.TargetUsers]
// users are ever active at once; the schedule enforces this, not the users.
package runner
