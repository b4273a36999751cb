// Package loadtest coordinates a complete load test run: it validates
// the resolved configuration, ramps a swarm of virtual users against the
// target, stops them when the configured duration elapses, and folds the
// collected outcomes into a report.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/loadworks/swarmload/internal/config"
	"github.com/loadworks/swarmload/internal/metrics"
	"github.com/loadworks/swarmload/internal/runner"
	"github.com/loadworks/swarmload/internal/vuser"
)

// Precondition failures. These are reported before any virtual user spawns;
// a run that trips one performed no work against the target.
var (
	ErrMissingCredential = errors.New("credential is required")
	ErrNoBehavior        = errors.New("behavior is required")
)

// Report is the outcome of one completed run.
type Report struct {
	ID       string    `json:"run_id"`
	Scenario string    `json:"scenario"`
	Started  time.Time `json:"started_at"`
	Finished time.Time `json:"finished_at"`

	DurationSeconds float64 `json:"duration_seconds"`
	Users           int     `json:"user_count"`
	SpawnRate       float64 `json:"spawn_rate"`
	Host            string  `json:"host"`

	metrics.Stats
}

// Engine runs load tests. The zero value is not usable; construct with New.
type Engine struct {
	collector *metrics.Collector
	logger    *zap.Logger
	current   atomic.Pointer[runner.Runner]
}

// New builds an Engine around a collector. A nil logger falls back to a nop.
func New(collector *metrics.Collector, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{collector: collector, logger: logger}
}

// ActiveUsers reports the virtual user count of the run in flight, or zero
// when no run is active.
func (e *Engine) ActiveUsers() int {
	if r := e.current.Load(); r != nil {
		return r.ActiveUsers()
	}
	return 0
}

// Run executes one load test synchronously and returns its report. The
// configured duration bounds the run; cancelling ctx stops it early. A
// duration of zero stops the run before any interaction completes.
func (e *Engine) Run(ctx context.Context, cfg config.RunConfig, behavior vuser.Interactor) (*Report, error) {
	if behavior == nil {
		return nil, ErrNoBehavior
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Credential == "" {
		return nil, ErrMissingCredential
	}
	if cfg.Host == "" {
		return nil, errors.New("host is required")
	}

	_, name := behavior.Labels()
	e.logger.Info("starting run",
		zap.String("scenario", name),
		zap.String("host", cfg.Host),
		zap.Int("users", cfg.Users),
		zap.Float64("spawn_rate", cfg.SpawnRate),
		zap.Duration("duration", cfg.Duration))

	// Aggregates from a previous run must not leak into this one.
	e.collector.Reset()
	e.collector.Start()
	started := time.Now()

	// A zero duration is a valid dry run: the report is produced without
	// spawning a single user.
	if cfg.Duration > 0 {
		wait := vuser.WaitPolicy{Min: cfg.WaitMin, Max: cfg.WaitMax}
		r := runner.New(runner.Options{
			TargetUsers: cfg.Users,
			SpawnRate:   cfg.SpawnRate,
			GracePeriod: cfg.GracePeriod,
			Logger:      e.logger,
			Factory: func(id int) (*vuser.User, error) {
				return vuser.New(id, behavior, cfg.Host, e.collector, wait), nil
			},
		})

		runCtx, cancelWatch := context.WithCancel(ctx)
		defer cancelWatch()

		if err := r.Start(runCtx); err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
		e.current.Store(r)
		defer e.current.Store(nil)

		timer := time.AfterFunc(cfg.Duration, r.Stop)
		go func() {
			<-runCtx.Done()
			r.Stop()
		}()

		r.Await()
		timer.Stop()
		cancelWatch()
	}

	finished := time.Now()
	stats := e.collector.Snapshot(finished.Sub(started))

	report := &Report{
		ID:              ulid.Make().String(),
		Scenario:        name,
		Started:         started,
		Finished:        finished,
		DurationSeconds: cfg.Duration.Seconds(),
		Users:           cfg.Users,
		SpawnRate:       cfg.SpawnRate,
		Host:            cfg.Host,
		Stats:           stats,
	}

	e.logger.Info("run complete",
		zap.String("run_id", report.ID),
		zap.String("scenario", name),
		zap.Int64("requests", stats.Requests),
		zap.Int64("failures", stats.Failures),
		zap.Float64("rps", stats.RequestsPerSec))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	return report, nil
}
