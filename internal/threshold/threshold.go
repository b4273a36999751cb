// Package threshold evaluates pass/fail assertions against run statistics.
// Failed thresholds drive the CLI exit code.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/loadworks/swarmload/internal/metrics"
)

// Threshold is one performance assertion.
type Threshold struct {
	Metric    string  // "latency", "failures", "requests", "overhead"
	Aggregate string  // "min", "max", "avg", "median", "p95", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64
	Raw       string // original threshold string for display
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against collected statistics.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string.
// Supported formats:
//   - "latency:p95 < 500"      (latency percentile in ms)
//   - "latency:avg < 200"      (average latency in ms)
//   - "latency:max < 1000"     (max latency in ms)
//   - "failures:rate < 0.01"   (failure rate as decimal)
//   - "failures:count < 10"    (failure count)
//   - "requests:rate > 100"    (requests per second)
//   - "overhead:median < 50"   (median overhead sample in ms)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'latency:p95 < 500')", s)
	}

	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[4], err)
	}

	t := Threshold{
		Metric:    matches[1],
		Aggregate: matches[2],
		Operator:  matches[3],
		Value:     value,
		Raw:       s,
	}

	if !isValidMetric(t.Metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, failures, requests, overhead)", t.Metric)
	}
	if !isValidAggregate(t.Aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: min, max, avg, median, p95, rate, count)", t.Aggregate)
	}
	if !isValidOperator(t.Operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", t.Operator)
	}
	return t, nil
}

// ParseMultiple parses multiple threshold strings, accumulating errors.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "latency", "failures", "requests", "overhead":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "min", "max", "avg", "median", "p95", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case "latency":
		return extractLatencyMetric(t.Aggregate, stats)
	case "failures":
		return extractFailureMetric(t.Aggregate, stats)
	case "requests":
		return extractRequestMetric(t.Aggregate, stats)
	case "overhead":
		return extractOverheadMetric(t.Aggregate, stats)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "min":
		return stats.MinLatencyMs, nil
	case "max":
		return stats.MaxLatencyMs, nil
	case "avg":
		return stats.AvgLatencyMs, nil
	case "median":
		return stats.MedianLatencyMs, nil
	case "p95":
		return stats.P95LatencyMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for latency", aggregate)
	}
}

func extractFailureMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.Failures), nil
	case "rate":
		if stats.Requests == 0 {
			return 0, nil
		}
		return float64(stats.Failures) / float64(stats.Requests), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for failures (use 'count' or 'rate')", aggregate)
	}
}

func extractRequestMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.Requests), nil
	case "rate":
		return stats.RequestsPerSec, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for requests (use 'count' or 'rate')", aggregate)
	}
}

func extractOverheadMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "min":
		return stats.Overhead.MinMs, nil
	case "max":
		return stats.Overhead.MaxMs, nil
	case "avg":
		return stats.Overhead.AvgMs, nil
	case "median":
		return stats.Overhead.MedianMs, nil
	case "count":
		return float64(stats.Overhead.Count), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for overhead", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
