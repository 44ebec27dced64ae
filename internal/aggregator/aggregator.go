// Package aggregator implements the streaming statistics accumulator:
// a single reader-writer-locked object that virtual users record into
// and the progress reporter / final summariser read from.
package aggregator

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pulseload/pulse/internal/results"
)

// sentinelMinMs is the "no samples yet" sentinel for min_ms, matching
// the source's use of u64::MAX; normalised to 0 in any externally
// exposed view.
const sentinelMinMs = math.MaxUint64

type bucketStats struct {
	requests uint64
	errors   uint64
	sumMs    uint64
	minMs    uint64
	maxMs    uint64
}

// Aggregator accumulates response-time statistics under a single
// reader-writer lock. The writer is always "record"; readers are the
// progress reporter and the final summariser.
type Aggregator struct {
	mu sync.RWMutex

	totalRequests uint64
	totalErrors   uint64
	responseTimes []uint64
	minMs         uint64
	maxMs         uint64
	sumMs         uint64
	totalBytes    uint64

	startTime time.Time // monotonic reference for bucket keys and current RPS
	startedAt time.Time // wall-clock reference for the final summary's RPS

	timeBuckets map[uint64]*bucketStats
}

// New creates an Aggregator whose clocks start now.
func New() *Aggregator {
	return &Aggregator{
		minMs:       sentinelMinMs,
		startTime:   time.Now(),
		startedAt:   time.Now(),
		timeBuckets: make(map[uint64]*bucketStats),
	}
}

// Record absorbs one completed request's measurement. Success means
// the request had no network-level error (assertion failures still
// count as a "success" at this layer — only the request event's
// `error` field determines it).
func (a *Aggregator) Record(elapsedMs uint64, success bool, sizeBytes int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalRequests++
	if !success {
		a.totalErrors++
	}
	a.responseTimes = append(a.responseTimes, elapsedMs)
	a.sumMs += elapsedMs
	if elapsedMs < a.minMs {
		a.minMs = elapsedMs
	}
	if elapsedMs > a.maxMs {
		a.maxMs = elapsedMs
	}
	if sizeBytes > 0 {
		a.totalBytes += uint64(sizeBytes)
	}

	bucketKey := uint64(time.Since(a.startTime).Seconds())
	b, ok := a.timeBuckets[bucketKey]
	if !ok {
		b = &bucketStats{minMs: sentinelMinMs}
		a.timeBuckets[bucketKey] = b
	}
	b.requests++
	if !success {
		b.errors++
	}
	b.sumMs += elapsedMs
	if elapsedMs < b.minMs {
		b.minMs = elapsedMs
	}
	if elapsedMs > b.maxMs {
		b.maxMs = elapsedMs
	}
}

// percentile computes the classical nearest-rank percentile over a
// sorted copy of the recorded response times. p must be in (0, 100].
func percentile(sorted []uint64, p float64) uint64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p / 100.0 * float64(n)))
	idx--
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Percentile computes the p-th percentile (p in (0,100]) over the
// samples recorded so far. Returns 0 when no samples exist.
func (a *Aggregator) Percentile(p float64) uint64 {
	a.mu.RLock()
	samples := make([]uint64, len(a.responseTimes))
	copy(samples, a.responseTimes)
	a.mu.RUnlock()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return percentile(samples, p)
}

// currentRPS computes throughput using the monotonic elapsed time
// since the aggregator was created, guarding against division when
// elapsed is under a millisecond.
func (a *Aggregator) currentRPS(totalRequests uint64) float64 {
	elapsedSecs := time.Since(a.startTime).Seconds()
	if elapsedSecs < 0.001 {
		return 0
	}
	return float64(totalRequests) / elapsedSecs
}

// Snapshot is a live read: percentiles from the current sample list,
// normalised min, and RPS computed over monotonic elapsed time.
type Snapshot struct {
	TotalRequests  uint64
	TotalErrors    uint64
	TotalSuccesses uint64
	MinMs          uint64
	MaxMs          uint64
	MeanMs         float64
	P50Ms          uint64
	P95Ms          uint64
	P99Ms          uint64
	TotalBytes     uint64
	CurrentRPS     float64
	ElapsedMs      uint64
}

// Snapshot returns the current live statistics.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	total := a.totalRequests
	errors := a.totalErrors
	minMs := a.minMs
	maxMs := a.maxMs
	sumMs := a.sumMs
	totalBytes := a.totalBytes
	samples := make([]uint64, len(a.responseTimes))
	copy(samples, a.responseTimes)
	a.mu.RUnlock()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	if minMs == sentinelMinMs {
		minMs = 0
	}
	var mean float64
	if total > 0 {
		mean = float64(sumMs) / float64(total)
	}

	return Snapshot{
		TotalRequests:  total,
		TotalErrors:    errors,
		TotalSuccesses: total - errors,
		MinMs:          minMs,
		MaxMs:          maxMs,
		MeanMs:         mean,
		P50Ms:          percentile(samples, 50),
		P95Ms:          percentile(samples, 95),
		P99Ms:          percentile(samples, 99),
		TotalBytes:     totalBytes,
		CurrentRPS:     a.currentRPS(total),
		ElapsedMs:      uint64(time.Since(a.startTime).Milliseconds()),
	}
}

// Summary builds the terminal TestSummary, computing RPS over
// wall-clock duration rather than the monotonic clock Snapshot uses.
func (a *Aggregator) Summary(planID, planName string) results.TestSummary {
	a.mu.RLock()
	total := a.totalRequests
	failed := a.totalErrors
	minMs := a.minMs
	maxMs := a.maxMs
	sumMs := a.sumMs
	totalBytes := a.totalBytes
	samples := make([]uint64, len(a.responseTimes))
	copy(samples, a.responseTimes)
	a.mu.RUnlock()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	if minMs == sentinelMinMs {
		minMs = 0
	}
	var mean float64
	if total > 0 {
		mean = float64(sumMs) / float64(total)
	}

	finishedAt := time.Now()
	elapsedSecs := finishedAt.Sub(a.startedAt).Seconds()
	var rps float64
	if elapsedSecs > 0 {
		rps = float64(total) / elapsedSecs
	}

	successful := total - failed
	if failed > total {
		successful = 0
	}

	return results.TestSummary{
		PlanID:             planID,
		PlanName:           planName,
		StartedAt:          a.startedAt,
		FinishedAt:         finishedAt,
		TotalRequests:      total,
		SuccessfulRequests: successful,
		FailedRequests:     failed,
		MinMs:              minMs,
		MaxMs:              maxMs,
		MeanMs:             mean,
		P50Ms:              percentile(samples, 50),
		P95Ms:              percentile(samples, 95),
		P99Ms:              percentile(samples, 99),
		RPS:                rps,
		TotalBytes:         totalBytes,
	}
}

// TimeSeries returns per-second bucket statistics in ascending second order.
func (a *Aggregator) TimeSeries() []results.TimeBucketEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]uint64, 0, len(a.timeBuckets))
	for k := range a.timeBuckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]results.TimeBucketEntry, 0, len(keys))
	for _, k := range keys {
		b := a.timeBuckets[k]
		var avg float64
		if b.requests > 0 {
			avg = float64(b.sumMs) / float64(b.requests)
		}
		minMs := b.minMs
		if minMs == sentinelMinMs {
			minMs = 0
		}
		out = append(out, results.TimeBucketEntry{
			Second:   k,
			Requests: b.requests,
			Errors:   b.errors,
			AvgMs:    avg,
			MinMs:    minMs,
			MaxMs:    b.maxMs,
		})
	}
	return out
}
