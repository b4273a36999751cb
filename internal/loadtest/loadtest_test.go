package loadtest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loadworks/swarmload/internal/config"
	"github.com/loadworks/swarmload/internal/metrics"
	"github.com/loadworks/swarmload/internal/vuser"
)

type stubBehavior struct {
	name     string
	latency  time.Duration
	err      error
	overhead float64
	calls    atomic.Int64
}

func (s *stubBehavior) Labels() (string, string) {
	return "POST", s.name
}

func (s *stubBehavior) Interact(ctx context.Context, host string, rec vuser.OverheadRecorder) error {
	s.calls.Add(1)
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.overhead > 0 {
		rec.RecordOverhead(s.overhead)
	}
	return s.err
}

func testConfig() config.RunConfig {
	return config.RunConfig{
		Duration:   500 * time.Millisecond,
		Users:      4,
		SpawnRate:  1000,
		Host:       "https://target.example.com",
		Credential: "test-key",
	}
}

func TestRunPreconditions(t *testing.T) {
	engine := New(metrics.NewCollector(), nil)
	behavior := &stubBehavior{name: "chat"}

	t.Run("nil behavior", func(t *testing.T) {
		if _, err := engine.Run(context.Background(), testConfig(), nil); !errors.Is(err, ErrNoBehavior) {
			t.Fatalf("expected ErrNoBehavior, got %v", err)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		cfg := testConfig()
		cfg.Credential = ""
		if _, err := engine.Run(context.Background(), cfg, behavior); !errors.Is(err, ErrMissingCredential) {
			t.Fatalf("expected ErrMissingCredential, got %v", err)
		}
		if behavior.calls.Load() != 0 {
			t.Errorf("precondition failure still ran %d interactions", behavior.calls.Load())
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.Users = 0
		_, err := engine.Run(context.Background(), cfg, behavior)
		var verr config.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := testConfig()
		cfg.Host = ""
		if _, err := engine.Run(context.Background(), cfg, behavior); err == nil {
			t.Fatal("expected error for missing host")
		}
	})
}

func TestRunZeroDuration(t *testing.T) {
	engine := New(metrics.NewCollector(), nil)
	behavior := &stubBehavior{name: "chat"}

	cfg := testConfig()
	cfg.Duration = 0
	report, err := engine.Run(context.Background(), cfg, behavior)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Requests != 0 {
		t.Errorf("zero-duration run recorded %d requests", report.Requests)
	}
	if behavior.calls.Load() != 0 {
		t.Errorf("zero-duration run performed %d interactions", behavior.calls.Load())
	}
	if report.ID == "" {
		t.Error("report has no run ID")
	}
}

func TestRunCollectsOutcomes(t *testing.T) {
	engine := New(metrics.NewCollector(), nil)
	behavior := &stubBehavior{name: "chat", latency: 10 * time.Millisecond}

	report, err := engine.Run(context.Background(), testConfig(), behavior)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Requests == 0 {
		t.Fatal("run recorded no requests")
	}
	if report.Requests != report.Successes+report.Failures {
		t.Errorf("requests %d != successes %d + failures %d",
			report.Requests, report.Successes, report.Failures)
	}
	if report.Failures != 0 {
		t.Errorf("healthy behavior produced %d failures", report.Failures)
	}
	if report.AvgLatencyMs < 5 {
		t.Errorf("avg latency %.2fms is below the 10ms interaction floor", report.AvgLatencyMs)
	}
	if report.Host != "https://target.example.com" || report.Users != 4 {
		t.Errorf("config echo lost: host=%q users=%d", report.Host, report.Users)
	}
	if report.Scenario != "chat" {
		t.Errorf("scenario = %q", report.Scenario)
	}
	if len(report.ID) != 26 {
		t.Errorf("run ID %q is not a ULID", report.ID)
	}
	if report.Finished.Before(report.Started) {
		t.Error("finished before started")
	}
}

func TestRunGroupsFailures(t *testing.T) {
	engine := New(metrics.NewCollector(), nil)
	behavior := &stubBehavior{
		name:    "embeddings",
		latency: 5 * time.Millisecond,
		err:     errors.New("unexpected status 503"),
	}

	report, err := engine.Run(context.Background(), testConfig(), behavior)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failures == 0 || report.Failures != report.Requests {
		t.Fatalf("failures = %d of %d requests", report.Failures, report.Requests)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("error groups = %d", len(report.Errors))
	}
	group := report.Errors[0]
	if group.Method != "POST" || group.Name != "embeddings" {
		t.Errorf("group labels = %q %q", group.Method, group.Name)
	}
	if group.Occurrences != report.Failures {
		t.Errorf("group occurrences %d != failures %d", group.Occurrences, report.Failures)
	}
}

func TestRunResetsOverheadBetweenRuns(t *testing.T) {
	collector := metrics.NewCollector()
	engine := New(collector, nil)

	withOverhead := &stubBehavior{name: "chat", latency: 5 * time.Millisecond, overhead: 12.5}
	first, err := engine.Run(context.Background(), testConfig(), withOverhead)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Overhead.Count == 0 {
		t.Fatal("first run recorded no overhead samples")
	}

	plain := &stubBehavior{name: "chat", latency: 5 * time.Millisecond}
	second, err := engine.Run(context.Background(), testConfig(), plain)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Overhead.Count != 0 {
		t.Errorf("overhead leaked across runs: count = %d", second.Overhead.Count)
	}
}

func TestRunStartsFromCleanAggregates(t *testing.T) {
	engine := New(metrics.NewCollector(), nil)

	busy := &stubBehavior{name: "chat", latency: 5 * time.Millisecond, err: errors.New("unexpected status 503")}
	first, err := engine.Run(context.Background(), testConfig(), busy)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Requests == 0 {
		t.Fatal("first run recorded no requests")
	}

	// A zero-duration run performs no interactions, so any request or error
	// it reports can only be a leak from the previous run.
	cfg := testConfig()
	cfg.Duration = 0
	second, err := engine.Run(context.Background(), cfg, &stubBehavior{name: "chat"})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Requests != 0 {
		t.Errorf("second run reports %d requests from the previous run", second.Requests)
	}
	if second.Failures != 0 || len(second.Errors) != 0 {
		t.Errorf("second run reports stale failures: %d (%v)", second.Failures, second.Errors)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	engine := New(metrics.NewCollector(), nil)
	behavior := &stubBehavior{name: "chat", latency: 5 * time.Millisecond}

	cfg := testConfig()
	cfg.Duration = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	report, err := engine.Run(ctx, cfg, behavior)
	if err == nil {
		t.Fatal("expected interruption error")
	}
	if report == nil {
		t.Fatal("interrupted run returned no report")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancelled run took %s to return", elapsed)
	}
}
