package config

import "time"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			L1Capacity: 4096,
			L2Capacity: 65536,
			TTLSeconds: 24 * 60 * 60,

			BloomBits:      1 << 20,
			BloomExpected:  100000,
			BloomShards:    64,
			BloomBlockSize: 128,

			RedisPoolSize:             100,
			RedisCommandTimeoutSecs:   2,
			RedisConnectionTimeoutMs:  2000,
			RedisMaxCommandAttempts:   3,
			RedisReconnectMaxAttempts: 5,
			RedisReconnectDelayMs:     100,
			RedisReconnectMaxDelayMs:  2000,

			MaxFailures:       5,
			RetryIntervalSecs: 30,
		},
		CodeGen: CodeGenConfig{
			ShardBits:   12,
			MaxAttempts: 5,
		},
		Analytics: AnalyticsConfig{
			FlushIntervalMs: 1000,
			BatchSize:       500,
			MaxBatchSizeMs:  5000,
			MaxBatchSize:    2000,
		},
		DatabaseURLs: []string{"redis://localhost:6379"},
		ColdStore: ColdStoreConfig{
			Enabled:           false,
			Path:              "hyperlinkr-coldstore.db",
			FlushIntervalSecs: 30,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			FailureThreshold:    5,
			SuccessThreshold:    2,
			OpenDuration:        30 * time.Second,
			HalfOpenMaxRequests: 3,
		},
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Multiplier:     2.0,
			Jitter:         true,
		},
		Bulkhead: BulkheadConfig{
			Enabled:        true,
			MaxConcurrent:  100,
			MaxQueue:       50,
			AcquireTimeout: 100 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:                false,
				AgentHost:              "127.0.0.1",
				Port:                   8125,
				Prefix:                 "hyperlinkr",
				Tags:                   []string{},
				PublishIntervalSeconds: 30,
			},
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests:
// small tiers, resilience patterns disabled, no remote endpoints dialed.
func ForTesting() *Config {
	return &Config{
		Cache: CacheConfig{
			L1Capacity: 64,
			L2Capacity: 256,
			TTLSeconds: 60,

			BloomBits:      1 << 14,
			BloomExpected:  1000,
			BloomShards:    8,
			BloomBlockSize: 64,

			RedisPoolSize:             10,
			RedisCommandTimeoutSecs:   1,
			RedisConnectionTimeoutMs:  500,
			RedisMaxCommandAttempts:   1,
			RedisReconnectMaxAttempts: 1,
			RedisReconnectDelayMs:     10,
			RedisReconnectMaxDelayMs:  100,

			MaxFailures:       3,
			RetryIntervalSecs: 1,
		},
		CodeGen: CodeGenConfig{
			ShardBits:   2,
			MaxAttempts: 4,
		},
		Analytics: AnalyticsConfig{
			FlushIntervalMs: 50,
			BatchSize:       10,
			MaxBatchSizeMs:  200,
			MaxBatchSize:    50,
		},
		DatabaseURLs: nil,
		ColdStore: ColdStoreConfig{
			Enabled: false,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             false,
			FailureThreshold:    3,
			SuccessThreshold:    1,
			OpenDuration:        1 * time.Second,
			HalfOpenMaxRequests: 1,
		},
		Retry: RetryConfig{
			Enabled:        false,
			MaxAttempts:    1,
			InitialBackoff: 10 * time.Millisecond,
			MaxBackoff:     100 * time.Millisecond,
			Multiplier:     2.0,
			Jitter:         false,
		},
		Bulkhead: BulkheadConfig{
			Enabled:        false,
			MaxConcurrent:  10,
			MaxQueue:       5,
			AcquireTimeout: 50 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: 1 * time.Second,
		},
	}
}

// ForTestingWithRedis returns a test config pointed at a real endpoint.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.DatabaseURLs = []string{addr}
	return cfg
}
