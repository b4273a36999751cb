package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/loadworks/swarmload/internal/config"
	"github.com/loadworks/swarmload/internal/httpclient"
	"github.com/loadworks/swarmload/internal/loadtest"
	"github.com/loadworks/swarmload/internal/metrics"
	"github.com/loadworks/swarmload/internal/output"
	"github.com/loadworks/swarmload/internal/scenario"
	"github.com/loadworks/swarmload/internal/threshold"
	"github.com/loadworks/swarmload/internal/tracing"
	"github.com/loadworks/swarmload/internal/vuser"
)

const (
	progressInterval = time.Second
	requestTimeout   = 60 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	scenarios, err := scenario.Load(cfg.ScenarioFile)
	if err != nil {
		return err
	}
	scenarios, err = selectScenarios(scenarios, cfg.RunOnly)
	if err != nil {
		return err
	}

	if cfg.LockFile != "" {
		lock := flock.New(cfg.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("run lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another run holds the lock file %s", cfg.LockFile)
		}
		defer lock.Unlock()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer provider.Shutdown(context.Background())

	var (
		reports          []*loadtest.Report
		thresholdResults []threshold.Result
		failedThresholds int
	)

	for _, sc := range scenarios {
		report, results, err := runScenario(ctx, cfg, sc, thresholds, provider, logger)
		if err != nil {
			if report != nil {
				reports = append(reports, report)
				if cfg.JSONOutput {
					_ = output.PrintJSONReport(os.Stdout, reports)
				} else {
					output.PrintReport(os.Stdout, report)
				}
			}
			return err
		}
		reports = append(reports, report)
		thresholdResults = append(thresholdResults, results...)
		if !cfg.JSONOutput {
			output.PrintReport(os.Stdout, report)
			for _, result := range results {
				fmt.Fprintln(os.Stdout, result.Message)
			}
		}
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, reports); err != nil {
			return err
		}
	}

	if cfg.HTMLReport != "" {
		if err := writeHTMLReport(cfg.HTMLReport, reports, thresholdResults); err != nil {
			return err
		}
	}

	for _, result := range thresholdResults {
		if !result.Pass {
			failedThresholds++
		}
	}
	if failedThresholds > 0 {
		return fmt.Errorf("%d thresholds failed", failedThresholds)
	}
	return nil
}

// runScenario executes one scenario end to end and evaluates its thresholds.
func runScenario(ctx context.Context, cfg *config.Config, sc scenario.Scenario, thresholds []threshold.Threshold, provider *tracing.Provider, logger *zap.Logger) (*loadtest.Report, []threshold.Result, error) {
	runCfg, err := config.Resolve(sc.Name, sc.Override(), cfg.Run)
	if err != nil {
		return nil, nil, err
	}
	if sc.WaitMin > 0 {
		runCfg.WaitMin = time.Duration(sc.WaitMin)
	}
	if sc.WaitMax > 0 {
		runCfg.WaitMax = time.Duration(sc.WaitMax)
	}

	client := httpclient.New(requestTimeout, runCfg.Users)
	behavior, err := scenario.NewBehavior(sc, client, runCfg.Credential)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Tracing.Enabled() || provider.ShouldPropagate() {
		behavior.EnableTracing(provider.Tracer(), provider.ShouldPropagate())
	}

	var interactor vuser.Interactor = behavior
	if cfg.LogErrors {
		interactor = &loggingInteractor{next: behavior, logger: logger}
	}

	collector := metrics.NewCollector()
	engine := loadtest.New(collector, logger)

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, engine.ActiveUsers, progressInterval, os.Stdout)
		progress.Start()
		defer progress.Stop()
	}

	runCtx, runSpan := tracing.StartRunSpan(ctx, provider.Tracer(), sc.Name, runCfg.Host, runCfg.Users)
	report, err := engine.Run(runCtx, runCfg, interactor)
	tracing.EndSpan(runSpan, err)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		// An interrupted run still yields a report over whatever was
		// collected; pass it up alongside the error.
		return report, nil, err
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(report.Stats)
	return report, results, nil
}

// selectScenarios filters the loaded scenarios by name when --run is given.
func selectScenarios(scenarios []scenario.Scenario, names []string) ([]scenario.Scenario, error) {
	if len(names) == 0 {
		return scenarios, nil
	}

	byName := make(map[string]scenario.Scenario, len(scenarios))
	for _, sc := range scenarios {
		byName[sc.Name] = sc
	}

	selected := make([]scenario.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

func writeHTMLReport(path string, reports []*loadtest.Report, results []threshold.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("html report: %w", err)
	}
	defer f.Close()
	return output.WriteHTMLReport(f, reports, results)
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
