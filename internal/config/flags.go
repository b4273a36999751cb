package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "swarmload",
		Short:         "Drive concurrent virtual users against an HTTP target and report latency, error and throughput statistics",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Scenario selection
	flags.StringP("scenarios", "s", "", "Path to the YAML scenario definitions file")
	flags.StringSlice("run", nil, "Scenario names to run (default: all scenarios in the file)")

	// Run parameter flags
	flags.String("host", "", "Target host override (e.g. https://api.example.com)")
	flags.IntP("users", "u", 0, "Target number of concurrent virtual users")
	flags.Float64P("spawn-rate", "r", 0, "Users spawned per second during ramp-up")
	flags.DurationP("duration", "d", 0, "How long to run each scenario (e.g. 30s, 5m)")
	flags.Duration("grace", 5*time.Second, "Max time to wait for virtual users to terminate on stop")
	flags.Duration("wait-min", 0, "Minimum think time between interaction cycles")
	flags.Duration("wait-max", 0, "Maximum think time between interaction cycles")

	// Output flags
	flags.Bool("json-output", false, "Emit the run report as JSON")
	flags.String("html-report", "", "Write a standalone HTML report to this path")
	flags.Bool("log-errors", false, "Log each failed interaction to stderr")
	flags.StringSlice("threshold", nil, "Pass/fail assertion over the report (e.g. 'latency:p95 < 500')")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint for span export (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("trace-insecure", false, "Skip TLS verification for the OTLP endpoint")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.Bool("trace-propagate", false, "Inject W3C trace context into target requests")
	flags.String("trace-service", "", "Service name reported on exported spans")

	// Misc
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.String("lock-file", "", "Path to the run lock file (prevents overlapping runs on this host)")
	flags.BoolP("help", "h", false, "Show usage information")
}

func displayHelp(cmd *cobra.Command) {
	fmt.Fprintln(cmd.OutOrStdout(), cmd.Short)
	fmt.Fprintln(cmd.OutOrStdout())
	_ = cmd.Usage()
}
