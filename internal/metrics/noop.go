package metrics

import (
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// NoOpTracker is a no-operation metrics tracker for testing.
type NoOpTracker struct{}

// NewNoOpTracker creates a new no-op tracker.
func NewNoOpTracker() *NoOpTracker {
	return &NoOpTracker{}
}

func (t *NoOpTracker) RecordHit(tier string, code string, latency time.Duration)  {}
func (t *NoOpTracker) RecordMiss(tier string, code string, latency time.Duration) {}
func (t *NoOpTracker) RecordInsert(tier string, code string, size int, latency time.Duration) {
}
func (t *NoOpTracker) RecordError(component string, operation string, err error)       {}
func (t *NoOpTracker) RecordCircuitBreakerStateChange(endpoint, from, to string)        {}
func (t *NoOpTracker) RecordCodeGenerated(latency time.Duration)                       {}
func (t *NoOpTracker) RecordClickEnqueued()                                            {}
func (t *NoOpTracker) RecordClickFlushed(n int)                                        {}
func (t *NoOpTracker) RecordClickDropped()                                             {}

// Snapshot returns empty metrics.
func (t *NoOpTracker) Snapshot() types.MetricsSnapshot { return types.MetricsSnapshot{} }

// Reset does nothing.
func (t *NoOpTracker) Reset() {}

// NoOpPublisher is a no-operation metrics publisher for testing or when disabled.
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (p *NoOpPublisher) Gauge(name string, value float64, tags ...string)             {}
func (p *NoOpPublisher) Incr(name string, tags ...string)                             {}
func (p *NoOpPublisher) Count(name string, value int64, tags ...string)               {}
func (p *NoOpPublisher) Histogram(name string, value float64, tags ...string)         {}
func (p *NoOpPublisher) Timing(name string, duration time.Duration, tags ...string)   {}
func (p *NoOpPublisher) Event(title, text, alertType string, tags ...string)          {}
func (p *NoOpPublisher) PublishHealthMetrics(metrics *types.HealthMetrics)            {}

// Close does nothing.
func (p *NoOpPublisher) Close() error { return nil }

// Ensure interfaces are implemented
var _ types.MetricsRecorder = (*NoOpTracker)(nil)
var _ types.Publisher = (*NoOpPublisher)(nil)
