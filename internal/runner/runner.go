package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/loadworks/swarmload/internal/vuser"
)

// Runner owns the virtual user population for a single run.
type Runner struct {
	opt Options

	mu     sync.Mutex
	users  []*vuser.User
	cancel context.CancelFunc

	wg      sync.WaitGroup
	active  atomic.Int64
	spawned atomic.Int64

	stopOnce sync.Once
	drained  chan struct{}
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{
		opt:     opt,
		cancel:  func() {},
		drained: make(chan struct{}),
	}
}

// Start spawns the first virtual user and begins ramping toward the target
// concurrency at the configured spawn rate. It fails only when no user can
// be created at all; later per-user spawn failures are logged and skipped.
func (r *Runner) Start(ctx context.Context) error {
	if r.opt.Factory == nil {
		return fmt.Errorf("runner: factory is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	first, err := r.opt.Factory(0)
	if err != nil {
		cancel()
		return fmt.Errorf("runner: cannot create any virtual user: %w", err)
	}
	r.launch(runCtx, first)

	if r.opt.TargetUsers > 1 {
		go r.ramp(runCtx)
	}
	return nil
}

func (r *Runner) ramp(ctx context.Context) {
	limiter := r.opt.LimiterFactory(r.opt.SpawnRate)
	for id := 1; id < r.opt.TargetUsers; id++ {
		if err := limiter.Wait(ctx); err != nil {
			return // ramp cut short by the stop signal
		}
		u, err := r.opt.Factory(id)
		if err != nil {
			r.opt.Logger.Warn("virtual user spawn failed",
				zap.Int("user_id", id),
				zap.Error(err))
			continue
		}
		r.launch(ctx, u)
	}
}

func (r *Runner) launch(ctx context.Context, u *vuser.User) {
	r.mu.Lock()
	r.users = append(r.users, u)
	r.mu.Unlock()

	r.spawned.Add(1)
	r.active.Add(1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)
		u.Run(ctx)
	}()
}

// Stop broadcasts the stop signal to every virtual user and blocks until all
// have terminated or the grace period expires. It is idempotent and safe to
// call concurrently from a deadline timer and an external caller.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		cancel := r.cancel
		r.mu.Unlock()
		cancel()

		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(r.opt.GracePeriod):
			r.opt.Logger.Warn("abandoning virtual users after grace period",
				zap.Int64("remaining", r.active.Load()),
				zap.Duration("grace_period", r.opt.GracePeriod))
		}
		close(r.drained)
	})
	<-r.drained
}

// Await blocks until Stop has fully drained the population. It returns
// immediately if the runner is already stopped.
func (r *Runner) Await() {
	<-r.drained
}

// ActiveUsers reports how many virtual users are currently running.
func (r *Runner) ActiveUsers() int { return int(r.active.Load()) }

// SpawnedUsers reports how many virtual users were created over the run.
func (r *Runner) SpawnedUsers() int { return int(r.spawned.Load()) }

// Users returns the roster. Valid for inspection after Await has returned.
func (r *Runner) Users() []*vuser.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*vuser.User(nil), r.users...)
}
