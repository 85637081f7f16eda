// Package metrics provides cache operation metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

// Tracker accumulates core operation counters and a rolling latency
// buffer, the way the teacher's Tracker does for its memory/redis
// tiers, generalized to this core's L1/L2/remote/cold-store/codegen/
// analytics surface.
type Tracker struct {
	l1Hits   atomic.Int64
	l1Misses atomic.Int64
	l2Hits   atomic.Int64
	l2Misses atomic.Int64

	bloomShortCircuits atomic.Int64

	remoteHits    atomic.Int64
	remoteMisses  atomic.Int64
	remoteErrors  atomic.Int64
	coldStoreHits atomic.Int64

	getCount    atomic.Int64
	insertCount atomic.Int64
	errorCount  atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int

	totalBytesWritten atomic.Int64

	cbStateChanges atomic.Int64

	codesGenerated    atomic.Int64
	codeGenRetries    atomic.Int64
	codeGenExhaustion atomic.Int64

	clicksEnqueued atomic.Int64
	clicksFlushed  atomic.Int64
	clicksDropped  atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

func (t *Tracker) RecordHit(tier string, code string, latency time.Duration) {
	switch tier {
	case "l1":
		t.l1Hits.Add(1)
	case "l2":
		t.l2Hits.Add(1)
	case "remote":
		t.remoteHits.Add(1)
	case "cold":
		t.coldStoreHits.Add(1)
	}
	t.getCount.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordMiss(tier string, code string, latency time.Duration) {
	switch tier {
	case "l1":
		t.l1Misses.Add(1)
	case "l2":
		t.l2Misses.Add(1)
	case "remote":
		t.remoteMisses.Add(1)
	case "bloom":
		t.bloomShortCircuits.Add(1)
	}
	t.getCount.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordInsert(tier string, code string, size int, latency time.Duration) {
	t.insertCount.Add(1)
	t.totalBytesWritten.Add(int64(size))
	t.recordLatency(latency)
}

// RecordError records an error surfaced by any component.
func (t *Tracker) RecordError(component string, operation string, err error) {
	t.errorCount.Add(1)
	if component == "remote" {
		t.remoteErrors.Add(1)
	}
}

// RecordCircuitBreakerStateChange records circuit breaker state transitions.
func (t *Tracker) RecordCircuitBreakerStateChange(endpoint, from, to string) {
	t.cbStateChanges.Add(1)
}

// RecordCodeGenerated records a successful short-code generation.
func (t *Tracker) RecordCodeGenerated(latency time.Duration) {
	t.codesGenerated.Add(1)
	t.recordLatency(latency)
}

// RecordCodeGenRetry records a collision-retry during code generation.
func (t *Tracker) RecordCodeGenRetry() {
	t.codeGenRetries.Add(1)
}

// RecordCodeGenExhaustion records a generator exhausting max_attempts.
func (t *Tracker) RecordCodeGenExhaustion() {
	t.codeGenExhaustion.Add(1)
}

// RecordClickEnqueued records an analytics event successfully queued.
func (t *Tracker) RecordClickEnqueued() {
	t.clicksEnqueued.Add(1)
}

// RecordClickFlushed records n analytics events written to the remote store.
func (t *Tracker) RecordClickFlushed(n int) {
	t.clicksFlushed.Add(int64(n))
}

// RecordClickDropped records an analytics event dropped because the
// queue was full.
func (t *Tracker) RecordClickDropped() {
	t.clicksDropped.Add(1)
}

// recordLatency adds a latency measurement using a circular buffer.
// This is O(1) time complexity with no memory allocations.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	// Use RLock for reading - allows concurrent snapshots
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	// Copy from circular buffer in correct order
	if count > 0 {
		if count < len(t.latencyBuffer) {
			// Buffer not full yet - data starts at 0
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full - oldest data starts at latencyIndex
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := types.MetricsSnapshot{
		Timestamp: time.Now(),

		L1Hits:   t.l1Hits.Load(),
		L1Misses: t.l1Misses.Load(),
		L2Hits:   t.l2Hits.Load(),
		L2Misses: t.l2Misses.Load(),

		BloomShortCircuits: t.bloomShortCircuits.Load(),

		RemoteHits:    t.remoteHits.Load(),
		RemoteMisses:  t.remoteMisses.Load(),
		RemoteErrors:  t.remoteErrors.Load(),
		ColdStoreHits: t.coldStoreHits.Load(),

		GetCount:    t.getCount.Load(),
		InsertCount: t.insertCount.Load(),
		ErrorCount:  t.errorCount.Load(),

		CodesGenerated:    t.codesGenerated.Load(),
		CodeGenRetries:    t.codeGenRetries.Load(),
		CodeGenExhaustion: t.codeGenExhaustion.Load(),

		ClicksEnqueued: t.clicksEnqueued.Load(),
		ClicksFlushed:  t.clicksFlushed.Load(),
		ClicksDropped:  t.clicksDropped.Load(),
	}

	// Calculate latency percentiles
	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = float64(avgDuration(latencyCopy).Milliseconds())
		snapshot.P50LatencyMs = float64(percentile(latencyCopy, 50).Milliseconds())
		snapshot.P95LatencyMs = float64(percentile(latencyCopy, 95).Milliseconds())
		snapshot.P99LatencyMs = float64(percentile(latencyCopy, 99).Milliseconds())
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.l1Hits.Store(0)
	t.l1Misses.Store(0)
	t.l2Hits.Store(0)
	t.l2Misses.Store(0)
	t.bloomShortCircuits.Store(0)
	t.remoteHits.Store(0)
	t.remoteMisses.Store(0)
	t.remoteErrors.Store(0)
	t.coldStoreHits.Store(0)
	t.getCount.Store(0)
	t.insertCount.Store(0)
	t.errorCount.Store(0)
	t.totalBytesWritten.Store(0)
	t.cbStateChanges.Store(0)
	t.codesGenerated.Store(0)
	t.codeGenRetries.Store(0)
	t.codeGenExhaustion.Store(0)
	t.clicksEnqueued.Store(0)
	t.clicksFlushed.Store(0)
	t.clicksDropped.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

// Helper functions for latency calculations

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	// Sort a copy
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

// Ensure Tracker implements MetricsRecorder
var _ types.MetricsRecorder = (*Tracker)(nil)
