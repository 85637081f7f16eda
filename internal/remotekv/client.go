// Package remotekv implements the resilient remote key-value client of
// spec §4.3: one redis.Client per configured endpoint in database_urls,
// routed through resilience.MultiBreaker's per-endpoint breakers, with
// resilience.Bulkhead bounding total concurrent commands and
// resilience.RetryPolicy retrying a transient failure against a
// (possibly different, round-robin selected) endpoint before giving up.
//
// Grounded on the teacher's internal/cache/redis.go: the same pool
// option wiring, connected/error-threshold health tracking and
// Close/Health shape, generalized from a single *redis.Client to M
// clients fanned out across resilience.MultiBreaker's per-endpoint
// breakers instead of one mutex-guarded connected flag. Bulkhead wraps
// retry wraps breaker selection: a command holds one bulkhead slot for
// its whole retry sequence, backoff waits included, and each attempt
// re-selects an endpoint and checks that endpoint's own breaker rather
// than one breaker call recording the outcome of the whole retry
// sequence as a single success or failure.
package remotekv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyperlinkr/hyperlinkr/internal/config"
	"github.com/hyperlinkr/hyperlinkr/internal/resilience"
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// retrier is the subset of resilience.RetryPolicy this package drives
// commands through, satisfied by both RetryPolicy and DisabledRetryPolicy.
type retrier interface {
	ExecuteWithResult(ctx context.Context, fn func(context.Context) (any, error)) (any, error)
}

// limiter is the subset of resilience.Bulkhead this package drives
// commands through, satisfied by both Bulkhead and DisabledBulkhead.
type limiter interface {
	ExecuteWithResult(ctx context.Context, fn func(context.Context) (any, error)) (any, error)
}

// Client is the multi-endpoint remote key-value store behind
// types.RemoteStore: Get/SetEx/SetExNX/Del/LPush each run through a
// shared bulkhead, a retry policy that re-selects an endpoint on each
// attempt, and the breaker guarding whichever endpoint that attempt
// lands on.
type Client struct {
	clients  []*redis.Client
	breakers *resilience.MultiBreaker
	retry    retrier
	bulkhead limiter
	cfg      config.CacheConfig
	logger   *slog.Logger
	metrics  types.MetricsRecorder

	mu        sync.RWMutex
	lastError map[int]error
}

// New dials one *redis.Client per url in urls, wraps them all in a
// resilience.MultiBreaker sharing cbCfg, a resilience.Bulkhead sharing
// bulkheadCfg, and a resilience.RetryPolicy built from cfg's
// redis_max_command_attempts/redis_reconnect_{delay_ms,max_delay_ms}
// bounds plus retryCfg's Enabled/Multiplier/Jitter knobs. Dialing is
// lazy (go-redis connects lazily on first command), so New never
// blocks on network I/O.
func New(urls []string, cfg config.CacheConfig, cbCfg config.CircuitBreakerConfig, retryCfg config.RetryConfig, bulkheadCfg config.BulkheadConfig, logger *slog.Logger, metrics types.MetricsRecorder) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("remotekv: at least one database url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "remotekv")

	clients := make([]*redis.Client, len(urls))
	for i, u := range urls {
		opt, err := redis.ParseURL(u)
		if err != nil {
			return nil, fmt.Errorf("remotekv: parsing database url %d: %w", i, err)
		}
		if !cfg.Password.IsEmpty() {
			opt.Password = cfg.Password.Value()
		}
		opt.PoolSize = cfg.RedisPoolSize
		opt.DialTimeout = time.Duration(cfg.RedisConnectionTimeoutMs) * time.Millisecond
		opt.ReadTimeout = time.Duration(cfg.RedisCommandTimeoutSecs) * time.Second
		opt.WriteTimeout = time.Duration(cfg.RedisCommandTimeoutSecs) * time.Second
		opt.PoolTimeout = time.Duration(cfg.RedisConnectionTimeoutMs) * time.Millisecond
		clients[i] = redis.NewClient(opt)
	}

	c := &Client{
		clients:   clients,
		breakers:  resilience.NewMultiBreaker(urls, cbCfg),
		retry:     newRetryPolicy(cfg, retryCfg),
		bulkhead:  newBulkhead(bulkheadCfg),
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		lastError: make(map[int]error),
	}

	c.breakers.SetOnStateChange(func(endpoint string, from, to resilience.State) {
		logger.Info("endpoint circuit breaker state changed",
			"endpoint", endpoint, "from", from.String(), "to", to.String())
		if metrics != nil {
			metrics.RecordCircuitBreakerStateChange(endpoint, from.String(), to.String())
		}
	})

	return c, nil
}

// newRetryPolicy merges the per-command attempt count and backoff
// bounds mandated by spec.md's cache.redis_max_command_attempts /
// redis_reconnect_{delay_ms,max_delay_ms} keys with retryCfg's
// Enabled/Multiplier/Jitter knobs, so both configuration surfaces
// drive the same resilience.RetryPolicy instead of either going unused.
func newRetryPolicy(cfg config.CacheConfig, retryCfg config.RetryConfig) retrier {
	if !retryCfg.Enabled {
		return resilience.NewDisabledRetryPolicy()
	}
	return resilience.NewRetryPolicy(config.RetryConfig{
		Enabled:        true,
		MaxAttempts:    cfg.RedisMaxCommandAttempts,
		InitialBackoff: time.Duration(cfg.RedisReconnectDelayMs) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.RedisReconnectMaxDelayMs) * time.Millisecond,
		Multiplier:     retryCfg.Multiplier,
		Jitter:         retryCfg.Jitter,
	})
}

func newBulkhead(cfg config.BulkheadConfig) limiter {
	if !cfg.Enabled {
		return resilience.NewDisabledBulkhead()
	}
	return resilience.NewBulkhead(cfg)
}

// execute runs op against an endpoint picked by the breaker's rotor,
// through the bulkhead -> retry -> breaker composition: the bulkhead
// bounds total concurrent commands across every endpoint, and each
// retry attempt re-selects a healthy endpoint and re-checks that
// endpoint's breaker independently, rather than one breaker call
// recording the outcome of the whole retry sequence as a single
// attempt.
func (c *Client) execute(ctx context.Context, op func(ctx context.Context, idx int) (any, error)) (any, error) {
	return c.bulkhead.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
		return c.retry.ExecuteWithResult(ctx, func(ctx context.Context) (any, error) {
			cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.RedisCommandTimeoutSecs)*time.Second)
			defer cancel()
			return c.breakers.Execute(func(idx int) (any, error) {
				result, err := op(cmdCtx, idx)
				if err != nil {
					c.setError(idx, err)
				} else {
					c.clearError(idx)
				}
				return result, err
			})
		})
	})
}

// Get reads the url stored at code. ok is false (err nil) on a clean
// miss; err is non-nil when the bulkhead/breaker rejected the call or
// every retry failed.
func (c *Client) Get(ctx context.Context, code string) (string, bool, error) {
	result, err := c.execute(ctx, func(ctx context.Context, idx int) (any, error) {
		val, getErr := c.clients[idx].Get(ctx, code).Result()
		if errors.Is(getErr, redis.Nil) {
			return nil, nil
		}
		return val, getErr
	})
	if err != nil {
		return "", false, c.translateErr(err)
	}
	if result == nil {
		return "", false, nil
	}
	return result.(string), true, nil
}

// SetEx writes code → url with the given TTL, overwriting any prior
// value (spec §4.5 insert step 1's unconditional remote write).
func (c *Client) SetEx(ctx context.Context, code, url string, ttl time.Duration) error {
	_, err := c.execute(ctx, func(ctx context.Context, idx int) (any, error) {
		return nil, c.clients[idx].Set(ctx, code, url, ttl).Err()
	})
	return c.translateErr(err)
}

// SetExNX writes code → url only if code is absent, per custom-alias
// inserts' conditional-write requirement (DESIGN.md Open Question 3).
// It returns types.ErrAlreadyExists, not a retryable error, when the
// key is already present: NX failure is not a transient condition.
func (c *Client) SetExNX(ctx context.Context, code, url string, ttl time.Duration) error {
	result, err := c.execute(ctx, func(ctx context.Context, idx int) (any, error) {
		return c.clients[idx].SetNX(ctx, code, url, ttl).Result()
	})
	if err != nil {
		return c.translateErr(err)
	}
	if set, ok := result.(bool); ok && !set {
		return types.ErrAlreadyExists
	}
	return nil
}

// Del removes code.
func (c *Client) Del(ctx context.Context, code string) error {
	_, err := c.execute(ctx, func(ctx context.Context, idx int) (any, error) {
		return nil, c.clients[idx].Del(ctx, code).Err()
	})
	return c.translateErr(err)
}

// LPush appends values to the list at key (analytics' `clicks:{code}`
// list per spec §6's persisted remote layout).
func (c *Client) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	_, err := c.execute(ctx, func(ctx context.Context, idx int) (any, error) {
		return nil, c.clients[idx].LPush(ctx, key, args...).Err()
	})
	return c.translateErr(err)
}

// translateErr wraps bulkhead/breaker-level rejection into the core
// error taxonomy, leaving a nil error nil.
func (c *Client) translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrAlreadyExists) {
		return err
	}
	if resilience.IsBulkheadError(err) {
		return types.NewCoreError("remotekv", "", types.KindPoolExhausted, err)
	}
	if errors.Is(err, resilience.ErrRejected) || errors.Is(err, resilience.ErrNoHealthyEndpoints) {
		return types.NewCoreError("remotekv", "", types.KindRejected, err)
	}
	return types.NewCoreError("remotekv", "", types.KindRemote, err)
}

func (c *Client) setError(idx int, err error) {
	c.mu.Lock()
	c.lastError[idx] = err
	c.mu.Unlock()
}

func (c *Client) clearError(idx int) {
	c.mu.Lock()
	delete(c.lastError, idx)
	c.mu.Unlock()
}

// Health returns a per-endpoint snapshot for the composer's aggregate
// health report.
func (c *Client) Health() []types.EndpointHealthMetrics {
	stats := c.breakers.Stats()
	health := make([]types.EndpointHealthMetrics, len(stats))

	c.mu.RLock()
	defer c.mu.RUnlock()

	for i, s := range stats {
		var lastErr string
		if err := c.lastError[i]; err != nil {
			lastErr = err.Error()
		}
		health[i] = types.EndpointHealthMetrics{
			Address:             s.Endpoint,
			Available:           s.State != resilience.StateOpen,
			CircuitBreakerState: s.State.String(),
			ConsecutiveFails:    s.ConsecutiveFails,
			LastError:           lastErr,
		}
	}
	return health
}

// Close closes every underlying *redis.Client.
func (c *Client) Close() error {
	var errs []error
	for _, cl := range c.clients {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

var _ types.RemoteStore = (*Client)(nil)
