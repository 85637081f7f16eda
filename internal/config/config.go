// Package config provides configuration management for hyperlinkr's
// cache, code generation, and analytics subsystems.
package config

import (
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for the hyperlinkr service.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	Cache          CacheConfig          `json:"cache"`
	CodeGen        CodeGenConfig        `json:"codegen"`
	Analytics      AnalyticsConfig      `json:"analytics"`
	DatabaseURLs   []string             `json:"database_urls"`
	ColdStore      ColdStoreConfig      `json:"cold_store"`
	CircuitBreaker CircuitBreakerConfig `json:"circuitBreaker"`
	Retry          RetryConfig          `json:"retry"`
	Bulkhead       BulkheadConfig       `json:"bulkhead"`
	Metrics        MetricsConfig        `json:"metrics"`
}

// CacheConfig contains configuration for the tiered cache, its bloom
// filter, and its remote client, per spec.md §6's cache.* keys.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type CacheConfig struct {
	L1Capacity int `json:"l1_capacity"`
	L2Capacity int `json:"l2_capacity"`
	TTLSeconds int `json:"ttl_seconds"`

	BloomBits      int `json:"bloom_bits"`
	BloomExpected  int `json:"bloom_expected"`
	BloomShards    int `json:"bloom_shards"`
	BloomBlockSize int `json:"bloom_block_size"`

	RedisPoolSize             int `json:"redis_pool_size"`
	RedisCommandTimeoutSecs   int `json:"redis_command_timeout_secs"`
	RedisConnectionTimeoutMs  int `json:"redis_connection_timeout_ms"`
	RedisMaxCommandAttempts   int `json:"redis_max_command_attempts"`
	RedisReconnectMaxAttempts int `json:"redis_reconnect_max_attempts"`
	RedisReconnectDelayMs     int `json:"redis_reconnect_delay_ms"`
	RedisReconnectMaxDelayMs  int `json:"redis_reconnect_max_delay_ms"`

	MaxFailures       int `json:"max_failures"`
	RetryIntervalSecs int `json:"retry_interval_secs"`

	Password SecretString `json:"password"`
}

// TTL returns the per-entry TTL as a time.Duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// CodeGenConfig contains configuration for the short-code generator,
// per spec.md §6's codegen.* keys.
type CodeGenConfig struct {
	ShardBits   int `json:"shard_bits"`
	MaxAttempts int `json:"max_attempts"`
}

// AnalyticsConfig contains configuration for the click analytics
// pipeline, per spec.md §6's analytics.* keys.
type AnalyticsConfig struct {
	FlushIntervalMs int `json:"flush_interval_ms"`
	BatchSize       int `json:"batch_size"`
	MaxBatchSizeMs  int `json:"max_batch_size_ms"`
	MaxBatchSize    int `json:"max_batch_size"`
}

// ColdStoreConfig contains configuration for the optional embedded
// on-disk cold tier.
type ColdStoreConfig struct {
	Enabled           bool   `json:"enabled"`
	Path              string `json:"path"`
	FlushIntervalSecs int    `json:"flush_interval_secs"`
}

// CircuitBreakerConfig contains configuration for the circuit breaker pattern.
type CircuitBreakerConfig struct {
	Enabled             bool          `json:"enabled"`
	FailureThreshold    int           `json:"failureThreshold"`
	SuccessThreshold    int           `json:"successThreshold"`
	OpenDuration        time.Duration `json:"openDuration"`
	HalfOpenMaxRequests int           `json:"halfOpenMaxRequests"`
}

// RetryConfig contains configuration for the retry pattern.
type RetryConfig struct {
	InitialBackoff time.Duration `json:"initialBackoff"`
	MaxBackoff     time.Duration `json:"maxBackoff"`
	Multiplier     float64       `json:"multiplier"`
	MaxAttempts    int           `json:"maxAttempts"`
	Enabled        bool          `json:"enabled"`
	Jitter         bool          `json:"jitter"`
}

// BulkheadConfig contains configuration for the bulkhead pattern.
type BulkheadConfig struct {
	Enabled        bool          `json:"enabled"`
	MaxConcurrent  int           `json:"maxConcurrent"`
	MaxQueue       int           `json:"maxQueue"`
	AcquireTimeout time.Duration `json:"acquireTimeout"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags                   []string `json:"tags"`
	AgentHost              string   `json:"agentHost"`
	Prefix                 string   `json:"prefix"`
	Port                   int      `json:"port"`
	PublishIntervalSeconds int      `json:"publishIntervalSeconds"`
	Enabled                bool     `json:"enabled"`
}
