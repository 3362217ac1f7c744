package reconcile

import (
	"context"
	"errors"
	"fmt"
	logger "log/slog"
	"math/big"

	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain"
)

// FeeMultiplier scales the base fee as Numerator/Denominator using integer math.
type FeeMultiplier struct {
	Numerator   uint64
	Denominator uint64
}

// DefaultFeeMultiplier is 1.5x. Nodes reject a same-nonce replacement below a 10% bump.
var DefaultFeeMultiplier = FeeMultiplier{Numerator: 3, Denominator: 2}

// DefaultFallbackFee is used when the node has no estimate (20 gwei).
var DefaultFallbackFee = big.NewInt(20_000_000_000)

func (m FeeMultiplier) Validate() error {
	if m.Denominator == 0 {
		return fmt.Errorf("denominator must be positive")
	}
	if m.Numerator <= m.Denominator {
		return fmt.Errorf("multiplier %d/%d must be greater than 1", m.Numerator, m.Denominator)
	}
	return nil
}

// Apply returns base * Numerator / Denominator, rounded down.
func (m FeeMultiplier) Apply(base *big.Int) *big.Int {
	out := new(big.Int).Mul(base, new(big.Int).SetUint64(m.Numerator))
	return out.Quo(out, new(big.Int).SetUint64(m.Denominator))
}

func (m FeeMultiplier) String() string {
	return fmt.Sprintf("%d/%d", m.Numerator, m.Denominator)
}

// Estimator derives the replacement fee from the node's current estimate.
type Estimator struct {
	client      chain.Client
	multiplier  FeeMultiplier
	fallbackFee *big.Int
	log         *logger.Logger
}

func NewEstimator(client chain.Client, multiplier FeeMultiplier, fallbackFee *big.Int) *Estimator {
	if fallbackFee == nil || fallbackFee.Sign() <= 0 {
		fallbackFee = DefaultFallbackFee
	}
	return &Estimator{
		client:      client,
		multiplier:  multiplier,
		fallbackFee: fallbackFee,
		log:         logger.Default().With("component", "estimator"),
	}
}

// Estimate returns the quote for this run. A node without an estimate gets the
// fallback fee; an unreachable node is a NetworkError.
func (e *Estimator) Estimate(ctx context.Context) (domain.GasQuote, error) {
	base, err := e.client.GasPrice(ctx)
	source := domain.FeeSourceNode

	switch {
	case errors.Is(err, domain.ErrFeeUnavailable):
		e.log.Warn("Node fee estimate unavailable, using fallback",
			"fallback", e.fallbackFee.String(),
			"error", err,
		)
		base = new(big.Int).Set(e.fallbackFee)
		source = domain.FeeSourceFallback
	case err != nil:
		return domain.GasQuote{}, domain.NewNetworkError("read fee estimate", err)
	}

	quote := domain.GasQuote{
		BaseFee:        base,
		ReplacementFee: e.multiplier.Apply(base),
		Source:         source,
	}

	e.log.Info("Replacement fee estimated",
		"base", quote.BaseFee.String(),
		"replacement", quote.ReplacementFee.String(),
		"multiplier", e.multiplier.String(),
		"source", string(source),
	)
	return quote, nil
}
