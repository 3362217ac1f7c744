package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/reconcile"
	"gopkg.in/yaml.v2"
)

const (
	EnvRPCURL     = "RPC_URL"
	EnvPrivateKey = "PRIVATE_KEY"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(data)
}

// LoadOrEnv is Load, except that a missing file yields a configuration built
// from the environment alone.
func LoadOrEnv(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Node.URL == "" {
		cfg.Node.URL = os.Getenv(EnvRPCURL)
	}
	if cfg.Account.PrivateKey == "" {
		cfg.Account.PrivateKey = os.Getenv(EnvPrivateKey)
	}

	setDefaults(&cfg)
	return &cfg, nil
}

func setDefaults(cfg *AppConfig) {
	if cfg.Node.Name == "" {
		cfg.Node.Name = "node"
	}
	if cfg.Node.Timeout == 0 {
		cfg.Node.Timeout = 30 * time.Second
	}

	r := &cfg.Replacement
	if r.FeeMultiplierNumerator == 0 && r.FeeMultiplierDenominator == 0 {
		r.FeeMultiplierNumerator = 3
		r.FeeMultiplierDenominator = 2
	}
	if r.GasLimit == 0 {
		r.GasLimit = 21000
	}
	if r.FallbackFeeWei == "" {
		r.FallbackFeeWei = "20000000000" // 20 gwei
	}
	if r.ReceiptPollInterval == 0 {
		r.ReceiptPollInterval = 2 * time.Second
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "unstuck"
	}
}

// Validate checks everything that must hold before the first node call.
func (c *AppConfig) Validate() error {
	if c.Node.URL == "" {
		return &domain.ConfigurationError{Field: "node.url", Reason: "missing (set it in the config file or " + EnvRPCURL + ")"}
	}
	u, err := url.Parse(c.Node.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigurationError{Field: "node.url", Reason: "must be an http(s) URL"}
	}

	// Key encoding is checked by the signer when it parses the key.
	if strings.TrimPrefix(c.Account.PrivateKey, "0x") == "" {
		return &domain.ConfigurationError{Field: "account.private_key", Reason: "missing (set it in the config file or " + EnvPrivateKey + ")"}
	}

	r := c.Replacement
	if err := c.FeeMultiplier().Validate(); err != nil {
		return &domain.ConfigurationError{Field: "replacement.fee_multiplier", Reason: err.Error()}
	}
	if r.GasLimit < 21000 {
		return &domain.ConfigurationError{Field: "replacement.gas_limit", Reason: "must be at least 21000"}
	}
	if _, err := c.FallbackFee(); err != nil {
		return &domain.ConfigurationError{Field: "replacement.fallback_fee_wei", Reason: err.Error()}
	}
	if c.Retry.MaxAttempts < 1 {
		return &domain.ConfigurationError{Field: "retry.max_attempts", Reason: "must be at least 1"}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &domain.ConfigurationError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// FeeMultiplier returns the configured replacement fee ratio.
func (c *AppConfig) FeeMultiplier() reconcile.FeeMultiplier {
	return reconcile.FeeMultiplier{
		Numerator:   c.Replacement.FeeMultiplierNumerator,
		Denominator: c.Replacement.FeeMultiplierDenominator,
	}
}

// FallbackFee parses replacement.fallback_fee_wei.
func (c *AppConfig) FallbackFee() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(c.Replacement.FallbackFeeWei, 10)
	if !ok || fee.Sign() <= 0 {
		return nil, fmt.Errorf("must be a positive decimal wei amount")
	}
	return fee, nil
}
