package reconcile

import (
	"context"
	"fmt"
	logger "log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain"
	"github.com/vietddude/unstuck/internal/infra/metrics"
)

// recheckTimeout bounds the final gap read when the run context is already done.
const recheckTimeout = 30 * time.Second

// Config holds the tunables of a run.
type Config struct {
	// ChainID is used for signing. Zero means ask the node.
	ChainID       uint64
	GasLimit      uint64
	FeeMultiplier FeeMultiplier
	FallbackFee   *big.Int
	DryRun        bool
}

func DefaultConfig() Config {
	return Config{
		GasLimit:      DefaultGasLimit,
		FeeMultiplier: DefaultFeeMultiplier,
		FallbackFee:   DefaultFallbackFee,
	}
}

// Reconciler runs detect, estimate, issue and re-check for the signer's account.
type Reconciler struct {
	client    chain.Client
	signer    chain.Signer
	cfg       Config
	detector  *Detector
	estimator *Estimator
	log       *logger.Logger
}

func NewReconciler(client chain.Client, signer chain.Signer, cfg Config) *Reconciler {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.FeeMultiplier.Denominator == 0 {
		cfg.FeeMultiplier = DefaultFeeMultiplier
	}
	return &Reconciler{
		client:    client,
		signer:    signer,
		cfg:       cfg,
		detector:  NewDetector(client),
		estimator: NewEstimator(client, cfg.FeeMultiplier, cfg.FallbackFee),
		log:       logger.Default().With("component", "reconciler"),
	}
}

// Run performs one reconciliation.
//
// The returned result is non-nil whenever the first gap read succeeded, even if
// a later step failed, so the caller can still report what happened. Errors
// returned here are fatal; per-nonce failures live in result.Attempts.
func (r *Reconciler) Run(ctx context.Context) (*domain.RunResult, error) {
	addr := r.signer.Address()
	result := &domain.RunResult{
		RunID:     uuid.NewString(),
		ChainID:   r.cfg.ChainID,
		DryRun:    r.cfg.DryRun,
		StartedAt: time.Now(),
	}
	log := r.log.With("run_id", result.RunID, "address", addr.Hex())

	before, err := r.detector.Detect(ctx, addr)
	if err != nil {
		return nil, err
	}
	result.Before = before
	metrics.NonceGap.WithLabelValues(addr.Hex(), "before").Set(float64(before.GapCount))

	if before.IsClean() {
		log.Info("No stuck transactions", "nonce", before.Account.LatestNonce)
		result.FinishedAt = time.Now()
		return result, nil
	}

	log.Info("Stuck transactions found",
		"latest", before.Account.LatestNonce,
		"pending", before.Account.PendingNonce,
		"gap", before.GapCount,
	)

	balance, err := r.client.Balance(ctx, addr)
	if err != nil {
		log.Warn("Failed to read balance, continuing", "error", err)
	} else {
		result.Balance = balance
	}

	quote, err := r.estimator.Estimate(ctx)
	if err != nil {
		result.FinishedAt = time.Now()
		return result, err
	}
	result.Quote = &quote
	r.checkFunds(log, result)

	if r.cfg.DryRun {
		log.Info("Dry run, no replacements sent", "nonces", before.StuckNonces)
		result.FinishedAt = time.Now()
		return result, nil
	}

	if result.ChainID == 0 {
		chainID, err := r.client.ChainID(ctx)
		if err != nil {
			result.FinishedAt = time.Now()
			return result, domain.NewNetworkError("read chain id", err)
		}
		result.ChainID = chainID
	}

	issuer := NewIssuer(r.client, r.signer, result.ChainID, r.cfg.GasLimit)
	result.Attempts = issuer.ReplaceStuck(ctx, before.Account, before.StuckNonces, quote)

	checkCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), recheckTimeout)
		defer cancel()
	}

	after, err := r.detector.Detect(checkCtx, addr)
	result.FinishedAt = time.Now()
	if err != nil {
		return result, err
	}
	result.After = after
	metrics.NonceGap.WithLabelValues(addr.Hex(), "after").Set(float64(after.GapCount))

	log.Info("Reconciliation finished",
		"confirmed", result.CountByStatus(domain.AttemptStatusConfirmed),
		"failed", result.CountByStatus(domain.AttemptStatusFailed),
		"residual_gap", after.GapCount,
	)
	return result, ctx.Err()
}

// checkFunds warns when the balance cannot pay for every replacement.
func (r *Reconciler) checkFunds(log *logger.Logger, result *domain.RunResult) {
	if result.Balance == nil || result.Quote == nil {
		return
	}
	cost := MaxCost(result.Before.GapCount, r.cfg.GasLimit, result.Quote.ReplacementFee)
	if result.Balance.Cmp(cost) < 0 {
		log.Warn("Balance may not cover all replacements",
			"balance", result.Balance.String(),
			"required", cost.String(),
			"shortfall", fmt.Sprint(new(big.Int).Sub(cost, result.Balance)),
		)
	}
}

// MaxCost is the most a run can spend: gap * gasLimit * fee.
func MaxCost(gap uint64, gasLimit uint64, fee *big.Int) *big.Int {
	cost := new(big.Int).SetUint64(gap)
	cost.Mul(cost, new(big.Int).SetUint64(gasLimit))
	return cost.Mul(cost, fee)
}
