// Package analytics implements the click-tracking pipeline of spec
// §4.7: record_click enqueues onto a bounded ring buffer and never
// blocks or fails; a single background flusher drains it in batches,
// grouped by code, onto the remote store's clicks:{code} list.
package analytics

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/clock"
	"github.com/hyperlinkr/hyperlinkr/internal/config"
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// flushRemoteTimeout bounds each LPUSH issued by the flusher,
// independent of the remote client's own per-command timeout, so a
// wedged flush never blocks the next tick indefinitely.
const flushRemoteTimeout = 5 * time.Second

// pollInterval is how often the run loop wakes to re-check the
// flush_interval_ms and max_batch_size_ms age-based triggers; it must
// be fine-grained relative to both for their bounds to hold.
const pollInterval = 20 * time.Millisecond

// Stats is a point-in-time snapshot of the pipeline's counters,
// supplemented from original_source/src/services/analytics.rs, which
// tracks flush outcomes informally via log lines; this makes them
// queryable at the metrics boundary.
type Stats struct {
	Enqueued     uint64
	Dropped      uint64
	Flushed      uint64
	FlushBatches uint64
	LastFlushAt  time.Time
}

// Service is the analytics pipeline: queue plus flusher.
type Service struct {
	q       *queue
	remote  types.RemoteStore
	clock   clock.Clock
	logger  *slog.Logger
	metrics types.MetricsRecorder
	cfg     config.AnalyticsConfig

	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	enqueued atomic.Uint64
	dropped  atomic.Uint64

	statsMu      sync.Mutex
	flushed      uint64
	flushBatches uint64
	lastFlushAt  time.Time
	lastFlush    time.Time
}

// New starts the background flusher immediately; callers must Close
// it to stop the goroutine and drain any remaining events.
func New(cfg config.AnalyticsConfig, remote types.RemoteStore, clk clock.Clock, logger *slog.Logger, metrics types.MetricsRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	capacity := cfg.BatchSize * 2
	if capacity < 2 {
		capacity = 2
	}

	s := &Service{
		q:       newQueue(capacity),
		remote:  remote,
		clock:   clk,
		logger:  logger.With("component", "analytics"),
		metrics: metrics,
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.lastFlush = clk.Now()

	go s.run()
	return s
}

// RecordClick enqueues a click event for code. It never blocks and
// never returns an error: a saturated queue silently drops the event
// and increments Dropped, per spec §4.7's contract.
func (s *Service) RecordClick(code string) {
	now := s.clock.Now()
	if s.q.tryPush(code, s.clock.UnixSeconds(), now) {
		s.enqueued.Add(1)
		if s.metrics != nil {
			s.metrics.RecordClickEnqueued()
		}
		if s.q.len() >= s.cfg.BatchSize {
			select {
			case s.wake <- struct{}{}:
			default:
			}
		}
		return
	}
	s.dropped.Add(1)
	if s.metrics != nil {
		s.metrics.RecordClickDropped()
	}
}

func (s *Service) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	flushInterval := time.Duration(s.cfg.FlushIntervalMs) * time.Millisecond
	maxAge := time.Duration(s.cfg.MaxBatchSizeMs) * time.Millisecond

	for {
		select {
		case <-s.stopCh:
			for s.q.len() > 0 {
				s.flush()
			}
			return
		case <-s.wake:
			s.flush()
		case <-ticker.C:
			now := s.clock.Now()
			s.statsMu.Lock()
			sinceLastFlush := now.Sub(s.lastFlush)
			s.statsMu.Unlock()
			if sinceLastFlush >= flushInterval || s.q.oldestAge(now) >= maxAge {
				s.flush()
			}
		}
	}
}

// flush drains up to max_batch_size events, groups them by code, and
// issues one LPUSH per code. A failed LPUSH is logged and the batch
// for that code discarded — analytics is best-effort (spec §4.7).
func (s *Service) flush() {
	events := s.q.drain(s.cfg.MaxBatchSize)
	if len(events) == 0 {
		return
	}

	grouped := make(map[string][]string, len(events))
	for _, e := range events {
		grouped[e.code] = append(grouped[e.code], strconv.FormatInt(e.ts, 10))
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushRemoteTimeout)
	defer cancel()

	var batches uint64
	for code, timestamps := range grouped {
		if err := s.remote.LPush(ctx, "clicks:"+code, timestamps...); err != nil {
			s.logger.Warn("click batch flush failed", "code", code, "count", len(timestamps), "error", err)
			if s.metrics != nil {
				s.metrics.RecordError("analytics", "flush", err)
			}
			continue
		}
		batches++
	}

	now := s.clock.Now()
	s.statsMu.Lock()
	s.flushed += uint64(len(events))
	s.flushBatches += batches
	s.lastFlushAt = now
	s.lastFlush = now
	s.statsMu.Unlock()

	if batches > 0 && s.metrics != nil {
		s.metrics.RecordClickFlushed(len(events))
	}
}

// Stats returns a snapshot of the pipeline's counters.
func (s *Service) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return Stats{
		Enqueued:     s.enqueued.Load(),
		Dropped:      s.dropped.Load(),
		Flushed:      s.flushed,
		FlushBatches: s.flushBatches,
		LastFlushAt:  s.lastFlushAt,
	}
}

// Close stops the flusher and waits for its final drain, bounded by
// ctx. If ctx expires first, Close returns ctx.Err() without waiting
// further; the flusher goroutine keeps draining in the background.
func (s *Service) Close(ctx context.Context) error {
	close(s.stopCh)
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
