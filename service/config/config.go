package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr  string
	MetricsAddr string
	LogLevel    string

	// Database configuration
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Solana RPC configuration
	SolanaRPCURL   string
	SolanaNetwork  string // label used in metrics, e.g. "mainnet"
	RPCTimeout     time.Duration
	RPCMaxAttempts int
	RPCBackoffBase time.Duration
	RPCBackoffMax  time.Duration

	// Normalizer configuration
	MintLookupConcurrency int

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Transaction watch configuration
	WatchPollInterval time.Duration
	WatchMaxPolls     int
}

// Load reads configuration from environment variables and validates all required fields.
// Every problem is collected so a misconfigured deployment sees all of them at once.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	} else if err := validateURL(cfg.SolanaRPCURL); err != nil {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL: %w", err))
	}
	cfg.SolanaNetwork = getEnvOrDefault("SOLANA_NETWORK", "mainnet")

	var err error
	if cfg.RPCTimeout, err = parseDuration("RPC_TIMEOUT", "10s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.RPCMaxAttempts, err = parseInt("RPC_MAX_ATTEMPTS", 3); err != nil {
		errs = append(errs, err)
	}
	if cfg.RPCBackoffBase, err = parseDuration("RPC_BACKOFF_BASE", "250ms"); err != nil {
		errs = append(errs, err)
	}
	if cfg.RPCBackoffMax, err = parseDuration("RPC_BACKOFF_MAX", "2s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.MintLookupConcurrency, err = parseInt("MINT_LOOKUP_CONCURRENCY", 8); err != nil {
		errs = append(errs, err)
	}

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "solgate-tx-watch")

	if cfg.WatchPollInterval, err = parseDuration("WATCH_POLL_INTERVAL", "2s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.WatchMaxPolls, err = parseInt("WATCH_MAX_POLLS", 60); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}
	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}
	if c.RPCTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RPCTimeout must be positive"))
	}
	if c.RPCMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RPCMaxAttempts must be at least 1"))
	}
	if c.RPCBackoffBase <= 0 {
		errs = append(errs, fmt.Errorf("RPCBackoffBase must be positive"))
	}
	if c.RPCBackoffMax < c.RPCBackoffBase {
		errs = append(errs, fmt.Errorf("RPCBackoffMax (%v) cannot be less than RPCBackoffBase (%v)",
			c.RPCBackoffMax, c.RPCBackoffBase))
	}
	if c.MintLookupConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MintLookupConcurrency must be at least 1"))
	}
	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}
	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}
	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}
	if c.WatchPollInterval < 500*time.Millisecond {
		errs = append(errs, fmt.Errorf("WatchPollInterval must be at least 500ms"))
	}
	if c.WatchMaxPolls < 1 {
		errs = append(errs, fmt.Errorf("WatchMaxPolls must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
