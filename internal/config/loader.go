package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies
// HYPERLINKR_* environment variable overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HYPERLINKR_CACHE_L1_CAPACITY"); v != "" {
		cfg.Cache.L1Capacity = parseInt(v, cfg.Cache.L1Capacity)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_L2_CAPACITY"); v != "" {
		cfg.Cache.L2Capacity = parseInt(v, cfg.Cache.L2Capacity)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_TTL_SECONDS"); v != "" {
		cfg.Cache.TTLSeconds = parseInt(v, cfg.Cache.TTLSeconds)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_BLOOM_BITS"); v != "" {
		cfg.Cache.BloomBits = parseInt(v, cfg.Cache.BloomBits)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_BLOOM_EXPECTED"); v != "" {
		cfg.Cache.BloomExpected = parseInt(v, cfg.Cache.BloomExpected)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_BLOOM_SHARDS"); v != "" {
		cfg.Cache.BloomShards = parseInt(v, cfg.Cache.BloomShards)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_BLOOM_BLOCK_SIZE"); v != "" {
		cfg.Cache.BloomBlockSize = parseInt(v, cfg.Cache.BloomBlockSize)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_REDIS_POOL_SIZE"); v != "" {
		cfg.Cache.RedisPoolSize = parseInt(v, cfg.Cache.RedisPoolSize)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = NewSecretString(v)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_MAX_FAILURES"); v != "" {
		cfg.Cache.MaxFailures = parseInt(v, cfg.Cache.MaxFailures)
	}
	if v := os.Getenv("HYPERLINKR_CACHE_RETRY_INTERVAL_SECS"); v != "" {
		cfg.Cache.RetryIntervalSecs = parseInt(v, cfg.Cache.RetryIntervalSecs)
	}

	if v := os.Getenv("HYPERLINKR_CODEGEN_SHARD_BITS"); v != "" {
		cfg.CodeGen.ShardBits = parseInt(v, cfg.CodeGen.ShardBits)
	}
	if v := os.Getenv("HYPERLINKR_CODEGEN_MAX_ATTEMPTS"); v != "" {
		cfg.CodeGen.MaxAttempts = parseInt(v, cfg.CodeGen.MaxAttempts)
	}

	if v := os.Getenv("HYPERLINKR_ANALYTICS_FLUSH_INTERVAL_MS"); v != "" {
		cfg.Analytics.FlushIntervalMs = parseInt(v, cfg.Analytics.FlushIntervalMs)
	}
	if v := os.Getenv("HYPERLINKR_ANALYTICS_BATCH_SIZE"); v != "" {
		cfg.Analytics.BatchSize = parseInt(v, cfg.Analytics.BatchSize)
	}
	if v := os.Getenv("HYPERLINKR_ANALYTICS_MAX_BATCH_SIZE_MS"); v != "" {
		cfg.Analytics.MaxBatchSizeMs = parseInt(v, cfg.Analytics.MaxBatchSizeMs)
	}
	if v := os.Getenv("HYPERLINKR_ANALYTICS_MAX_BATCH_SIZE"); v != "" {
		cfg.Analytics.MaxBatchSize = parseInt(v, cfg.Analytics.MaxBatchSize)
	}

	if v := os.Getenv("HYPERLINKR_DATABASE_URLS"); v != "" {
		cfg.DatabaseURLs = splitAndTrim(v, ",")
	}

	if v := os.Getenv("HYPERLINKR_COLD_STORE_ENABLED"); v != "" {
		cfg.ColdStore.Enabled = parseBool(v)
	}
	if v := os.Getenv("HYPERLINKR_COLD_STORE_PATH"); v != "" {
		cfg.ColdStore.Path = v
	}
	if v := os.Getenv("HYPERLINKR_COLD_STORE_FLUSH_INTERVAL_SECS"); v != "" {
		cfg.ColdStore.FlushIntervalSecs = parseInt(v, cfg.ColdStore.FlushIntervalSecs)
	}

	if v := os.Getenv("HYPERLINKR_CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("HYPERLINKR_CIRCUIT_BREAKER_FAILURE_THRESHOLD"); v != "" {
		cfg.CircuitBreaker.FailureThreshold = parseInt(v, cfg.CircuitBreaker.FailureThreshold)
	}
	if v := os.Getenv("HYPERLINKR_CIRCUIT_BREAKER_OPEN_DURATION"); v != "" {
		cfg.CircuitBreaker.OpenDuration = parseDuration(v, cfg.CircuitBreaker.OpenDuration)
	}

	if v := os.Getenv("HYPERLINKR_RETRY_ENABLED"); v != "" {
		cfg.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HYPERLINKR_RETRY_MAX_ATTEMPTS"); v != "" {
		cfg.Retry.MaxAttempts = parseInt(v, cfg.Retry.MaxAttempts)
	}

	if v := os.Getenv("HYPERLINKR_BULKHEAD_ENABLED"); v != "" {
		cfg.Bulkhead.Enabled = parseBool(v)
	}
	if v := os.Getenv("HYPERLINKR_BULKHEAD_MAX_CONCURRENT"); v != "" {
		cfg.Bulkhead.MaxConcurrent = parseInt(v, cfg.Bulkhead.MaxConcurrent)
	}

	if v := os.Getenv("HYPERLINKR_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}

	if v := os.Getenv("HYPERLINKR_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.Metrics.DataDog.Enabled = parseBool(v)
		}
	}
	if v := os.Getenv("HYPERLINKR_DATADOG_PREFIX"); v != "" {
		if os.Getenv("DD_SERVICE") == "" {
			cfg.Metrics.DataDog.Prefix = v
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Cache.L1Capacity <= 0 {
		return fmt.Errorf("cache.l1_capacity must be positive")
	}
	if c.Cache.L2Capacity <= 0 {
		return fmt.Errorf("cache.l2_capacity must be positive")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive")
	}
	if c.Cache.BloomBits <= 0 || c.Cache.BloomExpected <= 0 || c.Cache.BloomShards <= 0 {
		return fmt.Errorf("cache.bloom_bits, cache.bloom_expected and cache.bloom_shards must be positive")
	}

	if len(c.DatabaseURLs) == 0 {
		return fmt.Errorf("database_urls must contain at least one endpoint")
	}

	if c.CodeGen.ShardBits <= 0 || c.CodeGen.ShardBits > 16 {
		return fmt.Errorf("codegen.shard_bits must be between 1 and 16")
	}
	if c.CodeGen.MaxAttempts <= 0 {
		return fmt.Errorf("codegen.max_attempts must be positive")
	}

	if c.Analytics.BatchSize <= 0 {
		return fmt.Errorf("analytics.batch_size must be positive")
	}
	if c.Analytics.MaxBatchSize < c.Analytics.BatchSize {
		return fmt.Errorf("analytics.max_batch_size must be >= analytics.batch_size")
	}

	if c.ColdStore.Enabled && c.ColdStore.Path == "" {
		return fmt.Errorf("cold_store.path is required when cold_store is enabled")
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
		}
		if c.CircuitBreaker.OpenDuration <= 0 {
			return fmt.Errorf("circuitBreaker.openDuration must be positive")
		}
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			return fmt.Errorf("retry.maxAttempts must be positive")
		}
	}

	if c.Bulkhead.Enabled {
		if c.Bulkhead.MaxConcurrent <= 0 {
			return fmt.Errorf("bulkhead.maxConcurrent must be positive")
		}
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
