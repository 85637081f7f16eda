package hyperlinkr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/analytics"
	"github.com/hyperlinkr/hyperlinkr/internal/cache"
	"github.com/hyperlinkr/hyperlinkr/internal/clock"
	"github.com/hyperlinkr/hyperlinkr/internal/codegen"
	"github.com/hyperlinkr/hyperlinkr/internal/coldstore"
	"github.com/hyperlinkr/hyperlinkr/internal/config"
	"github.com/hyperlinkr/hyperlinkr/internal/metrics"
	"github.com/hyperlinkr/hyperlinkr/internal/metrics/datadog"
	"github.com/hyperlinkr/hyperlinkr/internal/remotekv"
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// closeTimeout bounds the final analytics drain on Close.
const closeTimeout = 5 * time.Second

// CacheService is the public surface of the composed core: spec §6's
// three named calls into the core (get, insert, contains_key) plus
// Warmup, Health, and Close for lifecycle management. *Service is the
// only implementation; the interface exists so callers can substitute
// a fake in their own tests.
type CacheService interface {
	Get(ctx context.Context, code string) (string, error)
	Insert(ctx context.Context, code, url string, opts ...Option) error
	ContainsKey(code string) bool
	Warmup(ctx context.Context, codes []string) error
	RecordClick(code string)
	Health(ctx context.Context) *HealthMetrics
	Close() error
}

// Service composes the cache manager, code generator, and analytics
// pipeline behind CacheService. Grounded on the teacher's
// pkg/rentfree.New/NewFromConfig/NewFromFile triad, generalized
// because this domain's manager doesn't build its own remote and cold
// stores the way the teacher's internal/cache.NewManager does — here
// they're separate packages (internal/remotekv, internal/coldstore)
// that Service dials and opens itself before handing them to
// cache.NewManager.
type Service struct {
	manager *cache.Manager
	codegen *codegen.Generator
	clicks  *analytics.Service

	bgPublisher *metrics.BackgroundPublisher
	cancelBG    context.CancelFunc
}

// New creates a Service with default configuration.
func New(opts ...ServiceOption) (*Service, error) {
	return NewFromConfig(config.DefaultConfig(), opts...)
}

// NewFromConfig creates a Service from cfg: it dials a remote store
// from cfg.DatabaseURLs (unless overridden with WithRemote), opens the
// cold store when cfg.ColdStore.Enabled, and builds the code generator
// and analytics pipeline from their respective config sections.
func NewFromConfig(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	o := &serviceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	publisher, err := resolvePublisher(cfg, o, logger)
	if err != nil {
		return nil, fmt.Errorf("hyperlinkr: building metrics publisher: %w", err)
	}

	metricsRecorder := o.metrics
	if metricsRecorder == nil {
		if cfg.Metrics.Enabled {
			metricsRecorder = metrics.NewTracker()
		} else {
			metricsRecorder = metrics.NewNoOpTracker()
		}
	}

	remote := o.remote
	if remote == nil {
		remote, err = remotekv.New(cfg.DatabaseURLs, cfg.Cache, cfg.CircuitBreaker, cfg.Retry, cfg.Bulkhead, logger, metricsRecorder)
		if err != nil {
			return nil, fmt.Errorf("hyperlinkr: dialing remote store: %w", err)
		}
	}

	var cold types.ColdStore
	switch {
	case o.cold != nil:
		cold = o.cold
	case cfg.ColdStore.Enabled:
		cold, err = coldstore.Open(cfg.ColdStore, logger, metricsRecorder)
		if err != nil {
			return nil, fmt.Errorf("hyperlinkr: opening cold store: %w", err)
		}
	}

	gen, err := codegen.New(cfg.CodeGen, metricsRecorder)
	if err != nil {
		return nil, fmt.Errorf("hyperlinkr: building code generator: %w", err)
	}

	clk := o.clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	clicks := analytics.New(cfg.Analytics, remote, clk, logger, metricsRecorder)

	manager, err := cache.NewManager(cfg, &types.ManagerOptions{
		Logger:  logger,
		Metrics: metricsRecorder,
		Remote:  remote,
		Cold:    cold,
	})
	if err != nil {
		return nil, fmt.Errorf("hyperlinkr: %w", err)
	}

	s := &Service{
		manager: manager,
		codegen: gen,
		clicks:  clicks,
	}

	if cfg.Metrics.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		s.bgPublisher = metrics.NewBackgroundPublisher(publisher, cfg.Metrics.PublishInterval, func() *types.HealthMetrics {
			return manager.Health(context.Background())
		}, logger)
		s.bgPublisher.Start(ctx)
		s.cancelBG = cancel
	}

	return s, nil
}

// NewFromFile loads configuration from a JSON file, applying
// HYPERLINKR_* environment overrides, and builds a Service from it.
func NewFromFile(path string, opts ...ServiceOption) (*Service, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

func resolvePublisher(cfg *config.Config, o *serviceOptions, logger *slog.Logger) (types.Publisher, error) {
	if o.publisher != nil {
		return o.publisher, nil
	}
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpPublisher(), nil
	}
	if cfg.Metrics.DataDog.Enabled {
		return datadog.NewPublisher(&cfg.Metrics.DataDog, logger)
	}
	return metrics.NewLoggingPublisher(logger), nil
}

// Config returns a default configuration that can be modified before
// creating a Service.
func Config() *config.Config { return config.DefaultConfig() }

// TestConfig returns a configuration suitable for unit tests: small
// tiers, resilience patterns disabled, and no remote endpoints to
// dial — pair it with WithRemote so NewFromConfig doesn't try to
// connect anywhere.
func TestConfig() *config.Config { return config.ForTesting() }

// Get resolves code to its target URL through the L1 -> filter -> L2
// -> remote -> cold cascade (spec §4.5).
func (s *Service) Get(ctx context.Context, code string) (string, error) {
	return s.manager.Get(ctx, code)
}

// Insert stores a code -> url mapping. If code is empty, one is
// produced by the injected code generator first; callers who need to
// know the resulting code should use Shorten instead.
func (s *Service) Insert(ctx context.Context, code, url string, opts ...Option) error {
	if code == "" {
		generated, err := s.codegen.Next()
		if err != nil {
			return err
		}
		code = generated
	}
	return s.manager.Insert(ctx, code, url, opts...)
}

// Shorten generates a new short code for url and inserts the mapping,
// returning the generated code.
func (s *Service) Shorten(ctx context.Context, url string, opts ...Option) (string, error) {
	code, err := s.codegen.Next()
	if err != nil {
		return "", err
	}
	if err := s.manager.Insert(ctx, code, url, opts...); err != nil {
		return "", err
	}
	return code, nil
}

// ContainsKey reports whether code is present in some tier, without
// resolving its URL or counting as a click.
func (s *Service) ContainsKey(code string) bool {
	return s.manager.ContainsKey(code)
}

// Warmup preloads codes into L1/L2 from the remote store ahead of
// expected traffic.
func (s *Service) Warmup(ctx context.Context, codes []string) error {
	return s.manager.Warmup(ctx, codes)
}

// RecordClick enqueues a click event for code onto the analytics
// pipeline. It never blocks and never fails; a saturated queue drops
// the event instead (spec §4.7).
func (s *Service) RecordClick(code string) {
	s.clicks.RecordClick(code)
}

// AnalyticsStats returns a snapshot of the click pipeline's counters.
func (s *Service) AnalyticsStats() analytics.Stats {
	return s.clicks.Stats()
}

// Health returns the aggregate health snapshot from the composer.
func (s *Service) Health(ctx context.Context) *HealthMetrics {
	return s.manager.Health(ctx)
}

// Close stops the background metrics publisher, drains the analytics
// queue, and closes the cache manager (which in turn closes the remote
// and cold stores), returning the first error encountered.
func (s *Service) Close() error {
	if s.cancelBG != nil {
		s.cancelBG()
	}
	if s.bgPublisher != nil {
		s.bgPublisher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	if err := s.clicks.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.manager.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var _ CacheService = (*Service)(nil)
