package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the env vars Load cannot default.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
}

func validConfig() *Config {
	return &Config{
		DatabaseURL:           "postgres://localhost/test",
		SolanaRPCURL:          "https://api.mainnet-beta.solana.com",
		RPCTimeout:            10 * time.Second,
		RPCMaxAttempts:        3,
		RPCBackoffBase:        250 * time.Millisecond,
		RPCBackoffMax:         2 * time.Second,
		MintLookupConcurrency: 8,
		TemporalHost:          "localhost:7233",
		TemporalNamespace:     "default",
		TemporalTaskQueue:     "solgate-tx-watch",
		WatchPollInterval:     2 * time.Second,
		WatchMaxPolls:         60,
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.SolanaRPCURL)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "mainnet", cfg.SolanaNetwork)
	assert.Equal(t, 10*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 3, cfg.RPCMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RPCBackoffBase)
	assert.Equal(t, 2*time.Second, cfg.RPCBackoffMax)
	assert.Equal(t, 8, cfg.MintLookupConcurrency)
	assert.Equal(t, "solgate-tx-watch", cfg.TemporalTaskQueue)
	assert.Equal(t, 2*time.Second, cfg.WatchPollInterval)
	assert.Equal(t, 60, cfg.WatchMaxPolls)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SOLANA_RPC_URL", "")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	// Both problems are reported together.
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
}

func TestLoad_InvalidRPCURL(t *testing.T) {
	setRequired(t)
	t.Setenv("SOLANA_RPC_URL", "ftp://example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must use http or https")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("RPC_TIMEOUT", "soon")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_InvalidInteger(t *testing.T) {
	setRequired(t)
	t.Setenv("RPC_MAX_ATTEMPTS", "three")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid integer")
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NATS_URL", "nats://nats.example.com:4222")
	t.Setenv("TEMPORAL_HOST", "temporal.example.com:7233")
	t.Setenv("SOLANA_NETWORK", "devnet")
	t.Setenv("RPC_TIMEOUT", "5s")
	t.Setenv("RPC_MAX_ATTEMPTS", "5")
	t.Setenv("MINT_LOOKUP_CONCURRENCY", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalHost)
	assert.Equal(t, "devnet", cfg.SolanaNetwork)
	assert.Equal(t, 5*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 5, cfg.RPCMaxAttempts)
	assert.Equal(t, 2, cfg.MintLookupConcurrency)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL is required")
}

func TestValidate_BackoffOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.RPCBackoffBase = 5 * time.Second
	cfg.RPCBackoffMax = time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPCBackoffMax")
}

func TestValidate_ZeroAttempts(t *testing.T) {
	cfg := validConfig()
	cfg.RPCMaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPCMaxAttempts must be at least 1")
}

func TestValidate_TooShortWatchInterval(t *testing.T) {
	cfg := validConfig()
	cfg.WatchPollInterval = 100 * time.Millisecond

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 500ms")
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SOLANA_RPC_URL", "")

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	setRequired(t)

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}
