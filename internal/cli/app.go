package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
	"github.com/vietddude/unstuck/internal/core/config"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain/evm"
	"github.com/vietddude/unstuck/internal/infra/rpc"
	"github.com/vietddude/unstuck/internal/infra/signer"
	"github.com/vietddude/unstuck/internal/infra/storage/memory"
	"github.com/vietddude/unstuck/internal/reconcile"
)

// app holds everything a command needs to talk to the node as the account.
type app struct {
	cfg    *config.AppConfig
	rpc    *rpc.Client
	node   *evm.Client
	signer *signer.KeySigner
	// runs receives audit records when no database is configured.
	runs *memory.RunRepo
}

// loadConfig reads .env and the config file. The default config path may be
// absent; an explicitly given one may not.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, err = config.LoadOrEnv(cfgPath)
	}
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "config", Reason: err.Error()}
	}
	return cfg, nil
}

func setupLogging(cfg *config.AppConfig) {
	level := slog.LevelInfo
	if isDebug {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return
	}

	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

// newApp loads and validates configuration, sets up logging and connects
// the node client and signer. No node call is made here.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		// Fall back to default logger for config load errors
		stylelog.InitDefault()
		return nil, err
	}

	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	keySigner, err := signer.NewKeySigner(cfg.Account.PrivateKey)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "account.private_key", Reason: err.Error()}
	}

	provider := rpc.NewHTTPProvider(cfg.Node.Name, cfg.Node.URL, cfg.Node.Timeout)
	retry := rpc.DefaultRetryConfig
	retry.MaxAttempts = cfg.Retry.MaxAttempts
	retry.InitialDelay = cfg.Retry.InitialDelay
	retry.MaxDelay = cfg.Retry.MaxDelay

	client := rpc.NewClient(provider, retry)

	slog.Debug("Configuration loaded",
		"node", cfg.Node.Name,
		"address", keySigner.Address().Hex(),
		"chain_id", cfg.Node.ChainID,
	)

	return &app{
		cfg:    cfg,
		rpc:    client,
		node:   evm.NewClient(client, cfg.Replacement.ReceiptPollInterval),
		signer: keySigner,
		runs:   memory.NewRunRepo(),
	}, nil
}

func (a *app) reconcileConfig(dryRun bool) (reconcile.Config, error) {
	fallback, err := a.cfg.FallbackFee()
	if err != nil {
		return reconcile.Config{}, &domain.ConfigurationError{Field: "replacement.fallback_fee_wei", Reason: err.Error()}
	}
	return reconcile.Config{
		ChainID:       a.cfg.Node.ChainID,
		GasLimit:      a.cfg.Replacement.GasLimit,
		FeeMultiplier: a.cfg.FeeMultiplier(),
		FallbackFee:   fallback,
		DryRun:        dryRun,
	}, nil
}

// chainID returns the configured chain ID or asks the node.
func (a *app) chainID(ctx context.Context) (uint64, error) {
	if a.cfg.Node.ChainID != 0 {
		return a.cfg.Node.ChainID, nil
	}
	id, err := a.node.ChainID(ctx)
	if err != nil {
		return 0, domain.NewNetworkError("read chain id", err)
	}
	return id, nil
}

func (a *app) Close() {
	if err := a.rpc.Close(); err != nil {
		slog.Debug("Failed to close rpc client", "error", err)
	}
}
