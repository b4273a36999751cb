package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const shardCount = 32

// Histogram bounds: 1µs to 60s at 3 significant figures.
const (
	histLowest  = 1
	histHighest = 60_000_000
	histSigFigs = 3
)

type errorKey struct {
	method string
	name   string
	text   string
}

// bucket holds the reduction state for one shard.
type bucket struct {
	successes  int64
	failures   int64
	sumLatency time.Duration
	minLatency time.Duration
	maxLatency time.Duration
	hist       *hdrhistogram.Histogram
	errors     map[errorKey]int64
}

type shard struct {
	mu     sync.Mutex
	bucket *bucket
}

// shardedStats spreads outcome recording across independently locked shards
// so concurrent virtual users rarely contend on the same lock.
type shardedStats struct {
	shards [shardCount]*shard
	next   uint64
}

func newShardedStats() *shardedStats {
	s := &shardedStats{}
	for i := range s.shards {
		s.shards[i] = &shard{bucket: newBucket()}
	}
	return s
}

func newBucket() *bucket {
	return &bucket{
		hist:   hdrhistogram.New(histLowest, histHighest, histSigFigs),
		errors: make(map[errorKey]int64),
	}
}

func (s *shardedStats) record(latency time.Duration, err error, method, name string) {
	idx := atomic.AddUint64(&s.next, 1) % shardCount
	sh := s.shards[idx]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	b := sh.bucket
	if latency > 0 {
		us := latency.Microseconds()
		if us < histLowest {
			us = histLowest
		}
		if us > histHighest {
			us = histHighest
		}
		_ = b.hist.RecordValue(us)
	}
	b.sumLatency += latency
	if b.minLatency == 0 || latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}

	if err == nil {
		b.successes++
		return
	}
	b.failures++
	b.errors[errorKey{method: method, name: name, text: Signature(err)}]++
}

// reset replaces every shard's bucket so the next recording starts from
// empty aggregates.
func (s *shardedStats) reset() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.bucket = newBucket()
		sh.mu.Unlock()
	}
}

// merge folds every shard into a single bucket. Shard locks are taken one at
// a time; recording continues on other shards while a snapshot is in flight.
func (s *shardedStats) merge() *bucket {
	out := newBucket()
	for _, sh := range s.shards {
		sh.mu.Lock()
		b := sh.bucket
		out.successes += b.successes
		out.failures += b.failures
		out.sumLatency += b.sumLatency
		if b.minLatency > 0 && (out.minLatency == 0 || b.minLatency < out.minLatency) {
			out.minLatency = b.minLatency
		}
		if b.maxLatency > out.maxLatency {
			out.maxLatency = b.maxLatency
		}
		out.hist.Merge(b.hist)
		for k, v := range b.errors {
			out.errors[k] += v
		}
		sh.mu.Unlock()
	}
	return out
}
