// Package output renders run reports and live progress for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/loadworks/swarmload/internal/loadtest"
)

// PrintReport writes a human-readable summary of one run.
func PrintReport(w io.Writer, report *loadtest.Report) {
	fmt.Fprintf(w, "\n--- %s ---\n", report.Scenario)
	fmt.Fprintf(w, "Run ID:            %s\n", report.ID)
	fmt.Fprintf(w, "Host:              %s\n", report.Host)
	fmt.Fprintf(w, "Users:             %d (spawn rate %.1f/s)\n", report.Users, report.SpawnRate)
	fmt.Fprintf(w, "Duration:          %s\n", report.Duration)
	fmt.Fprintf(w, "Total Requests:    %d\n", report.Requests)
	fmt.Fprintf(w, "Successful:        %d\n", report.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", report.Failures)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", report.RequestsPerSec)
	fmt.Fprintf(w, "Failures/sec:      %.2f\n", report.FailuresPerSec)

	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", report.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", report.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", report.MeanLatency)
	fmt.Fprintf(w, "  Median:          %s\n", report.MedianLatency)
	fmt.Fprintf(w, "  P95:             %s\n", report.P95Latency)

	if report.Overhead.Count > 0 {
		fmt.Fprintln(w, "\nOverhead:")
		fmt.Fprintf(w, "  Samples:         %d\n", report.Overhead.Count)
		fmt.Fprintf(w, "  Min:             %.2fms\n", report.Overhead.MinMs)
		fmt.Fprintf(w, "  Max:             %.2fms\n", report.Overhead.MaxMs)
		fmt.Fprintf(w, "  Mean:            %.2fms\n", report.Overhead.AvgMs)
		fmt.Fprintf(w, "  Median:          %.2fms\n", report.Overhead.MedianMs)
	}

	if len(report.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, group := range report.Errors {
			fmt.Fprintf(w, "  - %dx %s %s: %s\n",
				group.Occurrences, group.Method, group.Name, group.Error)
		}
	}
}

// PrintJSONReport writes the reports as an indented JSON array keyed the way
// downstream tooling expects.
func PrintJSONReport(w io.Writer, reports []*loadtest.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
