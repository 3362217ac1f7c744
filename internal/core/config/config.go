package config

import (
	"time"

	"github.com/vietddude/unstuck/internal/infra/metrics"
	redisclient "github.com/vietddude/unstuck/internal/infra/redis"
	"github.com/vietddude/unstuck/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Node        NodeConfig         `yaml:"node"`
	Account     AccountConfig      `yaml:"account"`
	Replacement ReplacementConfig  `yaml:"replacement"`
	Retry       RetryConfig        `yaml:"retry"`
	Logging     LoggingConfig      `yaml:"logging"`
	Redis       redisclient.Config `yaml:"redis"`
	Database    postgres.Config    `yaml:"database"`
	Metrics     metrics.Config     `yaml:"metrics"`
}

// NodeConfig holds settings for the ledger node endpoint.
type NodeConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	ChainID uint64        `yaml:"chain_id"` // 0 = ask the node
}

// AccountConfig holds the signing key of the reconciled account.
type AccountConfig struct {
	PrivateKey string `yaml:"private_key"`
}

// ReplacementConfig tunes the replacement transactions.
type ReplacementConfig struct {
	FeeMultiplierNumerator   uint64        `yaml:"fee_multiplier_numerator"`
	FeeMultiplierDenominator uint64        `yaml:"fee_multiplier_denominator"`
	GasLimit                 uint64        `yaml:"gas_limit"`
	FallbackFeeWei           string        `yaml:"fallback_fee_wei"` // decimal, fits values beyond uint64
	ReceiptPollInterval      time.Duration `yaml:"receipt_poll_interval"`
}

// RetryConfig holds retry settings for node reads.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
