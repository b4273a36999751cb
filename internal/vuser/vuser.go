package vuser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/loadworks/swarmload/internal/metrics"
)

// State describes a virtual user's position in its lifecycle.
type State int32

const (
	StateSpawning State = iota
	StateActive
	StateStopping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// OverheadRecorder accepts side-channel timing samples in milliseconds.
type OverheadRecorder interface {
	RecordOverhead(ms float64)
}

// Recorder is the write-only view of the aggregator handed to virtual users.
type Recorder interface {
	Record(metrics.Outcome)
	OverheadRecorder
}

// Interactor performs one logical client interaction against the target.
// Implementations must be safe for concurrent use: every virtual user in a
// run shares one Interactor.
type Interactor interface {
	// Labels identify the interaction in aggregated reports.
	Labels() (method, name string)
	// Interact executes a single interaction. ctx is cancelled when the
	// run stops; implementations should abort promptly. Side-channel
	// timings go to rec.
	Interact(ctx context.Context, host string, rec OverheadRecorder) error
}

// WaitPolicy is the think-time pacing applied between interaction cycles.
// A zero policy means no pause. When Max > Min the wait is drawn uniformly
// from [Min, Max].
type WaitPolicy struct {
	Min time.Duration
	Max time.Duration
}

func (p WaitPolicy) next(rnd *rand.Rand) time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rnd.Int63n(int64(p.Max-p.Min)))
}

// User is one simulated client session. It loops "interact, report, pause"
// until its context is cancelled.
type User struct {
	id       int
	behavior Interactor
	host     string
	recorder Recorder
	wait     WaitPolicy
	rnd      *rand.Rand
	state    atomic.Int32
}

func New(id int, behavior Interactor, host string, recorder Recorder, wait WaitPolicy) *User {
	u := &User{
		id:       id,
		behavior: behavior,
		host:     host,
		recorder: recorder,
		wait:     wait,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))),
	}
	u.state.Store(int32(StateSpawning))
	return u
}

// ID returns the user's spawn ordinal within its run.
func (u *User) ID() int { return u.id }

// State reports the current lifecycle state.
func (u *User) State() State { return State(u.state.Load()) }

// Run executes interaction cycles until ctx is cancelled. It always leaves
// the user in StateTerminated. A panic inside the behavior is recorded as a
// single failed outcome and terminates this user only.
func (u *User) Run(ctx context.Context) {
	defer u.state.Store(int32(StateTerminated))

	for {
		// Stop is observed at cycle boundaries.
		if ctx.Err() != nil {
			u.state.Store(int32(StateStopping))
			return
		}

		u.state.Store(int32(StateActive))
		if fatal := u.cycle(ctx); fatal {
			return
		}

		if !u.pause(ctx) {
			u.state.Store(int32(StateStopping))
			return
		}
	}
}

// cycle performs one interaction and reports its outcome. It returns true
// when the user suffered an unrecoverable fault and must terminate.
func (u *User) cycle(ctx context.Context) (fatal bool) {
	method, name := u.behavior.Labels()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			u.recorder.Record(metrics.Outcome{
				Method:  method,
				Name:    name,
				Latency: time.Since(start),
				Err:     fmt.Errorf("virtual user fault: %v", r),
			})
			fatal = true
		}
	}()

	err := u.behavior.Interact(ctx, u.host, u.recorder)
	latency := time.Since(start)

	// An interaction cut short by shutdown is not a target failure.
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return false
	}

	u.recorder.Record(metrics.Outcome{
		Method:  method,
		Name:    name,
		Latency: latency,
		Err:     err,
	})
	return false
}

// pause applies the think-time policy. It returns false if the wait was
// interrupted by cancellation.
func (u *User) pause(ctx context.Context) bool {
	d := u.wait.next(u.rnd)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
