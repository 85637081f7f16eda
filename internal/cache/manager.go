package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hyperlinkr/hyperlinkr/internal/bloom"
	"github.com/hyperlinkr/hyperlinkr/internal/config"
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// defaultPurgeInterval is how often L1/L2 sweep for expired entries in
// the background, independent of the lazy purge-on-access path.
const defaultPurgeInterval = 30 * time.Second

// Manager is the cache service composer of spec §4.5: it coordinates
// L1, L2, the negative-existence filter, the resilient remote store and
// the optional cold store into the get/insert/contains_key cascade.
//
// Grounded on the teacher's Manager (internal/cache/manager.go): same
// functional-options construction, slog adapter, background-goroutine
// tracking for graceful shutdown and circuit-state-change metrics hook,
// generalized from the teacher's fixed memory+redis two-tier cascade to
// this domain's L1→filter→L2→remote→cold five-step cascade.
type Manager struct {
	l1     types.CacheTier
	l2     types.CacheTier
	filter *bloom.Filter
	remote types.RemoteStore
	cold   types.ColdStore

	ttl     time.Duration
	metrics types.MetricsRecorder
	logger  *slog.Logger

	sfGroup singleflight.Group
	closed  atomic.Bool
}

// NewManager builds a Manager from cfg. opts.Remote is required: the
// remote store's concrete type (backed by internal/remotekv, wrapped in
// a resilience.MultiBreaker) is wired in by the caller, so this package
// never imports remotekv or coldstore directly. opts.Cold may be nil,
// in which case cold-store steps are skipped.
func NewManager(cfg *config.Config, opts *types.ManagerOptions) (*Manager, error) {
	if opts == nil || opts.Remote == nil {
		return nil, errors.New("cache: NewManager requires a non-nil Remote in ManagerOptions")
	}

	logger := slog.Default()
	if opts.Logger != nil {
		logger = slog.New(slogAdapter{logger: opts.Logger})
	}
	logger = logger.With("component", "cache-manager")

	filter, err := bloom.New(cfg.Cache.BloomBits, cfg.Cache.BloomExpected, cfg.Cache.BloomShards, cfg.Cache.BloomBlockSize)
	if err != nil {
		return nil, fmt.Errorf("cache: building bloom filter: %w", err)
	}

	cold := opts.Cold
	if cold == nil {
		cold = disabledColdStore{}
	}

	m := &Manager{
		l1:      NewTier("l1", cfg.Cache.L1Capacity, cfg.Cache.TTL(), defaultPurgeInterval, logger),
		l2:      NewTier("l2", cfg.Cache.L2Capacity, cfg.Cache.TTL(), defaultPurgeInterval, logger),
		filter:  filter,
		remote:  opts.Remote,
		cold:    cold,
		ttl:     cfg.Cache.TTL(),
		metrics: opts.Metrics,
		logger:  logger,
	}

	return m, nil
}

// Get implements the get cascade of spec §4.5: L1 → filter → L2 →
// remote → cold store.
func (m *Manager) Get(ctx context.Context, code string) (string, error) {
	if m.closed.Load() {
		return "", types.ErrClosed
	}

	start := time.Now()

	if url, ok := m.l1.Get(code); ok {
		m.recordHit("l1", code, time.Since(start))
		return url, nil
	}

	if !m.filter.Contains([]byte(code)) {
		m.recordMiss("bloom", code, time.Since(start))
		return "", types.NewCoreError("Get", code, types.KindNotFound, nil)
	}

	if url, ok := m.l2.Get(code); ok {
		m.l1.Insert(code, url, m.ttl)
		m.recordHit("l2", code, time.Since(start))
		return url, nil
	}

	url, err := m.getFromRemoteOrCold(ctx, code)
	if err != nil {
		m.recordMiss("remote", code, time.Since(start))
		return "", err
	}

	m.recordHit("remote", code, time.Since(start))
	return url, nil
}

// getFromRemoteOrCold runs the remote-then-cold probe and its tier
// fan-out under a singleflight group keyed by code, so a thundering
// herd of concurrent misses on the same freshly-evicted code issues
// exactly one remote round trip.
func (m *Manager) getFromRemoteOrCold(ctx context.Context, code string) (string, error) {
	result, err, _ := m.sfGroup.Do(code, func() (any, error) {
		if url, ok := m.l1.Get(code); ok {
			return url, nil
		}
		if url, ok := m.l2.Get(code); ok {
			m.l1.Insert(code, url, m.ttl)
			return url, nil
		}

		url, ok, remoteErr := m.remote.Get(ctx, code)
		if remoteErr != nil {
			m.logger.Warn("remote get failed", "code", code, "error", remoteErr)
			if m.metrics != nil {
				m.metrics.RecordError("remote", "get", remoteErr)
			}
		}
		if ok {
			m.fanOutTiers(code, url, m.ttl, false)
			return url, nil
		}

		if m.cold.Enabled() {
			coldURL, coldOK, coldErr := m.cold.Get(code)
			if coldErr != nil {
				m.logger.Warn("cold store get failed", "code", code, "error", coldErr)
			}
			if coldOK {
				if rehydrateErr := m.remote.SetEx(ctx, code, coldURL, m.ttl); rehydrateErr != nil {
					m.logger.Warn("cold store rehydration of remote failed", "code", code, "error", rehydrateErr)
				}
				m.fanOutTiers(code, coldURL, m.ttl, false)
				return coldURL, nil
			}
		}

		return "", types.NewCoreError("Get", code, types.KindNotFound, nil)
	})

	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Insert implements the insert cascade of spec §4.5: remote write
// (authoritative, errors propagate) then best-effort concurrent
// population of L1, L2, filter and cold store.
func (m *Manager) Insert(ctx context.Context, code, url string, opts ...types.Option) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	start := time.Now()
	o := types.ApplyOptions(m.ttl, opts...)

	var err error
	if o.CustomAlias {
		err = m.remote.SetExNX(ctx, code, url, o.TTL)
	} else {
		err = m.remote.SetEx(ctx, code, url, o.TTL)
	}
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordError("remote", "insert", err)
		}
		return types.NewCoreError("Insert", code, types.KindRemote, err)
	}

	m.fanOutTiers(code, url, o.TTL, true)

	m.recordInsert(code, len(url), time.Since(start))
	return nil
}

// ContainsKey consults L1/L2 only: fast, non-authoritative (spec §4.5).
func (m *Manager) ContainsKey(code string) bool {
	return m.l1.Contains(code) || m.l2.Contains(code)
}

// Warmup pre-populates L1/L2 for a known hot set of codes from remote,
// exercising the same fan-out path as Insert. Supplements spec.md with
// the original implementation's optional warm-set startup behaviour.
func (m *Manager) Warmup(ctx context.Context, codes []string) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	var wg sync.WaitGroup
	for _, code := range codes {
		code := code
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, ok, err := m.remote.Get(ctx, code)
			if err != nil {
				m.logger.Warn("warmup remote get failed", "code", code, "error", err)
				return
			}
			if !ok {
				return
			}
			m.fanOutTiers(code, url, m.ttl, false)
		}()
	}
	wg.Wait()
	return nil
}

// fanOutTiers populates L1, L2 and the filter in parallel, always
// waiting for completion ("structured parallel wait" per spec §4.5); it
// additionally populates the cold store when populateCold is set
// (Insert does, the remote/cold-hit paths of Get do not, since the cold
// store is either not authoritative there or already holds the value).
// Cold store failure is logged, never propagated; in-memory tiers never
// fail at all.
func (m *Manager) fanOutTiers(code, url string, ttl time.Duration, populateCold bool) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); m.l1.Insert(code, url, ttl) }()
	go func() { defer wg.Done(); m.l2.Insert(code, url, ttl) }()
	go func() { defer wg.Done(); m.filter.Insert([]byte(code)) }()

	if populateCold && m.cold.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.cold.Set(code, url); err != nil {
				m.logger.Warn("cold store populate failed", "code", code, "error", err)
			}
		}()
	}

	wg.Wait()
}

// Health returns an aggregate health snapshot across every tier, the
// remote endpoints and the cold store.
func (m *Manager) Health(context.Context) *types.HealthMetrics {
	l1Stats := m.l1.Stats()
	l2Stats := m.l2.Stats()

	totalHits := l1Stats.Hits + l2Stats.Hits
	totalOps := totalHits + l1Stats.Misses + l2Stats.Misses
	var hitRatio float64
	if totalOps > 0 {
		hitRatio = float64(totalHits) / float64(totalOps)
	}

	endpoints := m.remote.Health()

	h := &types.HealthMetrics{
		Timestamp: time.Now(),
		Tiers: types.TierHealthMetrics{
			L1EntryCount: m.l1.Len(),
			L2EntryCount: m.l2.Len(),
			HitRatio:     hitRatio,
		},
		Endpoints: endpoints,
		ColdStore: types.ColdStoreHealthMetrics{
			Enabled:   m.cold.Enabled(),
			Available: m.cold.Available(),
		},
	}

	anyHealthy := false
	for _, ep := range endpoints {
		if ep.Available {
			anyHealthy = true
			break
		}
	}

	switch {
	case len(endpoints) == 0 || anyHealthy:
		h.Status = types.HealthStatusHealthy
	case !anyHealthy:
		h.Status = types.HealthStatusDegraded
	}
	if m.cold.Enabled() && !m.cold.Available() {
		h.Status = types.HealthStatusDegraded
	}

	return h
}

// Close releases all resources: the L1/L2 purge goroutines, the remote
// store and the cold store. Insert/Get's fan-out waits synchronously
// inside the call that spawned it, so there is no background work left
// to drain at shutdown.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	var errs []error
	m.l1.Close()
	m.l2.Close()
	if err := m.remote.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.cold.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (m *Manager) recordHit(tier, code string, latency time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordHit(tier, code, latency)
	}
}

func (m *Manager) recordMiss(tier, code string, latency time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordMiss(tier, code, latency)
	}
}

func (m *Manager) recordInsert(code string, size int, latency time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordInsert("remote", code, size, latency)
	}
}

// disabledColdStore is the default cold store when ManagerOptions.Cold
// is nil: Enabled reports false so the get/insert cascade skips every
// cold-store step entirely.
type disabledColdStore struct{}

func (disabledColdStore) Get(string) (string, bool, error) { return "", false, nil }
func (disabledColdStore) Set(string, string) error         { return nil }
func (disabledColdStore) Enabled() bool                    { return false }
func (disabledColdStore) Available() bool                  { return false }
func (disabledColdStore) Close() error                     { return nil }

var _ types.ColdStore = disabledColdStore{}

//nolint:govet // Simple adapter struct - alignment optimization minimal
type slogAdapter struct {
	attrs  []slog.Attr
	logger types.Logger
	group  string // current group prefix from WithGroup calls
}

// Enabled implements slog.Handler.
func (a slogAdapter) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Handler interface requires passing Record by value
func (a slogAdapter) Handle(_ context.Context, r slog.Record) error {
	args := make([]any, 0, (len(a.attrs)+r.NumAttrs())*2)

	for _, attr := range a.attrs {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
	}

	r.Attrs(func(attr slog.Attr) bool {
		key := attr.Key
		if a.group != "" {
			key = a.group + "." + key
		}
		args = append(args, key, attr.Value.Any())
		return true
	})

	switch r.Level {
	case slog.LevelDebug:
		a.logger.Debug(r.Message, args...)
	case slog.LevelInfo:
		a.logger.Info(r.Message, args...)
	case slog.LevelWarn:
		a.logger.Warn(r.Message, args...)
	case slog.LevelError:
		a.logger.Error(r.Message, args...)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (a slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(a.attrs), len(a.attrs)+len(attrs))
	copy(newAttrs, a.attrs)
	newAttrs = append(newAttrs, attrs...)
	return slogAdapter{logger: a.logger, attrs: newAttrs, group: a.group}
}

// WithGroup implements slog.Handler.
func (a slogAdapter) WithGroup(name string) slog.Handler {
	newGroup := name
	if a.group != "" {
		newGroup = a.group + "." + name
	}
	return slogAdapter{logger: a.logger, attrs: a.attrs, group: newGroup}
}
