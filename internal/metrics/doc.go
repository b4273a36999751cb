// Package metrics aggregates per-interaction outcomes from many concurrent
// virtual users into run-level statistics.
//
// The central type is [Collector]. Virtual users hold a write-only view of it
// and fold outcomes in via [Collector.Record]; the run coordinator reads the
// derived statistics out once via [Collector.Snapshot].
//
// # Concurrency
//
// Recording is sharded: each outcome lands in one of a fixed number of
// internally locked shards, so thousands of concurrent users do not serialize
// on a single mutex. Shards are merged only when a snapshot is taken.
// Derived statistics are order-independent reductions (sums, counts, min,
// max, histogram merges), so the interleaving of outcomes across users does
// not affect the result.
//
// # Percentiles
//
// Latency percentiles come from HDR histograms recorded at microsecond
// resolution with 3 significant figures. This is a streaming estimator, not
// full sample retention: memory stays bounded under high request volume, and
// reported quantiles are accurate to the histogram's precision rather than
// exact order statistics. Overhead samples are the exception; they are few
// enough to retain in full, so their median is exact.
package metrics
