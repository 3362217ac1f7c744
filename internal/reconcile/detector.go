package reconcile

import (
	"context"
	logger "log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain"
)

// Detector computes the stuck-transaction count for an account.
type Detector struct {
	client chain.Client
	log    *logger.Logger
}

func NewDetector(client chain.Client) *Detector {
	return &Detector{
		client: client,
		log:    logger.Default().With("component", "detector"),
	}
}

// Detect reads the latest and pending counters and builds a gap report.
// The two reads are not atomic: a confirmation in between can make the pending
// read stale, which shows up as a negative gap and is clamped to zero.
func (d *Detector) Detect(ctx context.Context, addr common.Address) (*domain.NonceGapReport, error) {
	latest, err := d.client.TransactionCount(ctx, addr, chain.BlockLatest)
	if err != nil {
		return nil, domain.NewNetworkError("read latest nonce", err)
	}

	pending, err := d.client.TransactionCount(ctx, addr, chain.BlockPending)
	if err != nil {
		return nil, domain.NewNetworkError("read pending nonce", err)
	}

	report := domain.NewNonceGapReport(addr, latest, pending)
	if report.Clamped {
		d.log.Debug("Pending nonce below latest, treating gap as zero",
			"address", addr.Hex(),
			"latest", latest,
			"pending", pending,
		)
	}

	d.log.Debug("Nonce gap detected",
		"address", addr.Hex(),
		"latest", report.Account.LatestNonce,
		"pending", report.Account.PendingNonce,
		"gap", report.GapCount,
	)
	return report, nil
}
