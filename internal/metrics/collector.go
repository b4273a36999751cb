package metrics

import (
	"sort"
	"sync"
	"time"
)

// Outcome is one completed interaction attempt reported by a virtual user.
// Outcomes are folded into running aggregates and never retained individually.
type Outcome struct {
	Method  string
	Name    string
	Latency time.Duration
	Err     error
}

// Collector records interaction outcomes and overhead samples from many
// concurrent virtual users.
type Collector struct {
	stats *shardedStats

	overheadMu sync.Mutex
	overhead   []float64

	startMu sync.Mutex
	start   time.Time
}

// Stats is a point-in-time aggregation over one run.
type Stats struct {
	Requests  int64 `json:"requests"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`

	MinLatency    time.Duration `json:"-"`
	MaxLatency    time.Duration `json:"-"`
	MeanLatency   time.Duration `json:"-"`
	MedianLatency time.Duration `json:"-"`
	P95Latency    time.Duration `json:"-"`
	Duration      time.Duration `json:"-"`

	// JSON-friendly millisecond fields, mirroring the report wire shape.
	MinLatencyMs    float64 `json:"min_response_time_ms"`
	MaxLatencyMs    float64 `json:"max_response_time_ms"`
	AvgLatencyMs    float64 `json:"avg_response_time_ms"`
	MedianLatencyMs float64 `json:"median_response_time_ms"`
	P95LatencyMs    float64 `json:"p95_response_time_ms"`
	DurationMs      float64 `json:"duration_ms"`

	RequestsPerSec float64 `json:"requests_per_second"`
	FailuresPerSec float64 `json:"failures_per_second"`

	Errors   []ErrorSummary  `json:"errors"`
	Overhead OverheadSummary `json:"overhead_summary"`
}

// ErrorSummary is one distinct (method, name, error) failure group.
type ErrorSummary struct {
	Method      string `json:"method"`
	Name        string `json:"name"`
	Occurrences int64  `json:"occurrences"`
	Error       string `json:"error"`
}

// OverheadSummary describes the side-channel timing samples for one run.
type OverheadSummary struct {
	Count    int     `json:"count"`
	MinMs    float64 `json:"min_ms,omitempty"`
	MaxMs    float64 `json:"max_ms,omitempty"`
	AvgMs    float64 `json:"avg_ms,omitempty"`
	MedianMs float64 `json:"median_ms,omitempty"`
}

func NewCollector() *Collector {
	return &Collector{
		stats: newShardedStats(),
		start: time.Now(),
	}
}

// Start marks the beginning of the run for elapsed-time based rates.
func (c *Collector) Start() {
	c.startMu.Lock()
	c.start = time.Now()
	c.startMu.Unlock()
}

// Elapsed returns wall time since the run started.
func (c *Collector) Elapsed() time.Duration {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	return time.Since(c.start)
}

// Record folds one outcome into the aggregates. Safe for concurrent use.
func (c *Collector) Record(o Outcome) {
	c.stats.record(o.Latency, o.Err, o.Method, o.Name)
}

// RecordOverhead appends one side-channel timing sample in milliseconds.
// Safe for concurrent use.
func (c *Collector) RecordOverhead(ms float64) {
	c.overheadMu.Lock()
	c.overhead = append(c.overhead, ms)
	c.overheadMu.Unlock()
}

// Reset clears every aggregate: outcome counters, latency histograms, error
// groups, and overhead samples. The coordinator calls this exactly once per
// run, before any virtual user starts, so a reused collector reports only
// the run at hand.
func (c *Collector) Reset() {
	c.stats.reset()
	c.ResetOverhead()
}

// ResetOverhead clears overhead samples only.
func (c *Collector) ResetOverhead() {
	c.overheadMu.Lock()
	c.overhead = c.overhead[:0]
	c.overheadMu.Unlock()
}

// Snapshot computes statistics over the given elapsed wall time.
func (c *Collector) Snapshot(elapsed time.Duration) Stats {
	b := c.stats.merge()

	total := b.successes + b.failures
	stats := Stats{
		Requests:   total,
		Successes:  b.successes,
		Failures:   b.failures,
		MinLatency: b.minLatency,
		MaxLatency: b.maxLatency,
		Duration:   elapsed,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(b.sumLatency) / total)
	}
	if b.hist.TotalCount() > 0 {
		stats.MedianLatency = time.Duration(b.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P95Latency = time.Duration(b.hist.ValueAtQuantile(95)) * time.Microsecond
	}

	stats.MinLatencyMs = toMillis(stats.MinLatency)
	stats.MaxLatencyMs = toMillis(stats.MaxLatency)
	stats.AvgLatencyMs = toMillis(stats.MeanLatency)
	stats.MedianLatencyMs = toMillis(stats.MedianLatency)
	stats.P95LatencyMs = toMillis(stats.P95Latency)
	stats.DurationMs = toMillis(elapsed)

	if elapsed > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
		stats.FailuresPerSec = float64(b.failures) / elapsed.Seconds()
	}

	stats.Errors = summarizeErrors(b.errors)
	stats.Overhead = c.OverheadSummary()

	return stats
}

// OverheadSummary summarizes the overhead samples collected so far.
func (c *Collector) OverheadSummary() OverheadSummary {
	c.overheadMu.Lock()
	samples := append([]float64(nil), c.overhead...)
	c.overheadMu.Unlock()

	summary := OverheadSummary{Count: len(samples)}
	if len(samples) == 0 {
		return summary
	}

	sort.Float64s(samples)
	summary.MinMs = samples[0]
	summary.MaxMs = samples[len(samples)-1]

	var sum float64
	for _, v := range samples {
		sum += v
	}
	summary.AvgMs = sum / float64(len(samples))

	mid := len(samples) / 2
	if len(samples)%2 == 1 {
		summary.MedianMs = samples[mid]
	} else {
		summary.MedianMs = (samples[mid-1] + samples[mid]) / 2
	}
	return summary
}

func summarizeErrors(groups map[errorKey]int64) []ErrorSummary {
	if len(groups) == 0 {
		return nil
	}
	out := make([]ErrorSummary, 0, len(groups))
	for k, count := range groups {
		out = append(out, ErrorSummary{
			Method:      k.method,
			Name:        k.name,
			Occurrences: count,
			Error:       k.text,
		})
	}
	// Most frequent first; ties broken lexically for stable reports.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		if out[i].Method != out[j].Method {
			return out[i].Method < out[j].Method
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Error < out[j].Error
	})
	return out
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
