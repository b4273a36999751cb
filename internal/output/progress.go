package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/loadworks/swarmload/internal/metrics"
)

// ProgressReporter displays real-time progress updates during a run.
type ProgressReporter struct {
	collector *metrics.Collector
	active    func() int
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	running   int32
}

// NewProgressReporter creates a progress reporter that updates at the given
// interval. active reports the current virtual user count and may be nil.
func NewProgressReporter(collector *metrics.Collector, active func() int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if active == nil {
		active = func() int { return 0 }
	}
	return &ProgressReporter{
		collector: collector,
		active:    active,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and ends the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			stats := p.collector.Snapshot(p.collector.Elapsed())
			fmt.Fprintf(p.writer, "\rUsers: %d | Requests: %d | Failures: %d | RPS: %.1f | P95: %.0fms",
				p.active(), stats.Requests, stats.Failures, stats.RequestsPerSec, stats.P95LatencyMs)
		case <-p.done:
			return
		}
	}
}
