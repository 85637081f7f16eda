package types

import (
	"context"
	"time"
)

// Logger is the structured logging contract consumed throughout the
// core. internal/metrics and the top-level facade adapt a *slog.Logger
// to satisfy it, the way the teacher's manager does.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder is the metrics contract consumed by the cache
// composer, breaker, code generator and analytics pipeline.
type MetricsRecorder interface {
	RecordHit(tier string, code string, latency time.Duration)
	RecordMiss(tier string, code string, latency time.Duration)
	RecordInsert(tier string, code string, size int, latency time.Duration)
	RecordError(component string, operation string, err error)
	RecordCircuitBreakerStateChange(endpoint, from, to string)
	RecordCodeGenerated(latency time.Duration)
	RecordClickEnqueued()
	RecordClickFlushed(n int)
	RecordClickDropped()
}

// CacheTier is the contract shared by L1 and L2 (spec §4.4): identical
// semantics at different capacities.
type CacheTier interface {
	Get(code string) (url string, ok bool)
	Insert(code, url string, ttl time.Duration)
	Contains(code string) bool
	Remove(code string)
	Len() int
	Stats() TierStats
	Close()
}

// RemoteStore is the resilient remote key-value contract (spec §4.3):
// the breaker, pool and retry machinery live behind this interface, so
// the composer only ever sees Get/SetEx/SetExNX/Del/LPush and a health
// snapshot per configured endpoint.
type RemoteStore interface {
	Get(ctx context.Context, code string) (url string, ok bool, err error)
	SetEx(ctx context.Context, code, url string, ttl time.Duration) error
	SetExNX(ctx context.Context, code, url string, ttl time.Duration) error
	Del(ctx context.Context, code string) error
	LPush(ctx context.Context, key string, values ...string) error
	Health() []EndpointHealthMetrics
	Close() error
}

// ColdStore is the optional embedded on-disk cold tier consulted last
// in the get cascade (spec §4.5 step 5). A disabled stand-in satisfies
// this with Enabled()==false when cold_store.enabled is false.
type ColdStore interface {
	Get(code string) (url string, ok bool, err error)
	Set(code, url string) error
	Enabled() bool
	Available() bool
	Close() error
}

// ManagerOptions customizes cache Manager construction beyond what
// *config.Config carries, the way the teacher's ManagerOptions injects
// a serializer or overrides Redis settings for tests.
type ManagerOptions struct {
	Logger  Logger
	Metrics MetricsRecorder
	Remote  RemoteStore
	Cold    ColdStore
}

// Publisher is the metrics-publishing contract the logging and DataDog
// backends both satisfy.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text, alertType string, tags ...string)
	PublishHealthMetrics(metrics *HealthMetrics)
	Close() error
}
