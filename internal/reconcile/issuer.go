package reconcile

import (
	"context"
	"fmt"
	logger "log/slog"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/chain"
	"github.com/vietddude/unstuck/internal/infra/metrics"
)

// DefaultGasLimit is the intrinsic gas of a plain value transfer.
const DefaultGasLimit uint64 = 21000

// Issuer sends the replacement transactions.
type Issuer struct {
	client   chain.Client
	signer   chain.Signer
	chainID  *big.Int
	gasLimit uint64
	log      *logger.Logger
}

func NewIssuer(client chain.Client, signer chain.Signer, chainID uint64, gasLimit uint64) *Issuer {
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	return &Issuer{
		client:   client,
		signer:   signer,
		chainID:  new(big.Int).SetUint64(chainID),
		gasLimit: gasLimit,
		log:      logger.Default().With("component", "issuer"),
	}
}

// ReplaceStuck issues one zero-value self-transfer per nonce at quote.ReplacementFee.
//
// Nonces are handled in ascending order and never concurrently: the ledger will
// not confirm a nonce while a lower one from the same account is unconfirmed.
// Each attempt waits for one confirmation before the next is signed. A failed
// attempt is recorded and the loop continues; nothing is retried within a run.
// Once ctx is done, the remaining nonces are recorded as failed without being sent.
func (i *Issuer) ReplaceStuck(
	ctx context.Context,
	account domain.Account,
	gapNonces []uint64,
	quote domain.GasQuote,
) []*domain.ReplacementAttempt {
	nonces := slices.Clone(gapNonces)
	slices.Sort(nonces)
	nonces = slices.Compact(nonces)

	attempts := make([]*domain.ReplacementAttempt, 0, len(nonces))
	for idx, nonce := range nonces {
		var attempt *domain.ReplacementAttempt
		if err := ctx.Err(); err != nil {
			attempt = domain.NewReplacementAttempt(nonce, new(big.Int).Set(quote.ReplacementFee))
			_ = attempt.MarkFailed(fmt.Sprintf("not sent: %v", err))
		} else {
			i.log.Info("Replacing stuck nonce",
				"nonce", nonce,
				"progress", fmt.Sprintf("%d/%d", idx+1, len(nonces)),
				"fee", quote.ReplacementFee.String(),
			)
			attempt = i.replaceOne(ctx, account.Address, nonce, quote.ReplacementFee)
		}

		metrics.ReplacementAttempts.WithLabelValues(string(attempt.Status)).Inc()
		attempts = append(attempts, attempt)
	}

	return attempts
}

func (i *Issuer) replaceOne(
	ctx context.Context,
	addr common.Address,
	nonce uint64,
	fee *big.Int,
) *domain.ReplacementAttempt {
	attempt := domain.NewReplacementAttempt(nonce, new(big.Int).Set(fee))

	req := chain.TxRequest{
		ChainID:  i.chainID,
		From:     addr,
		To:       addr,
		Nonce:    nonce,
		GasLimit: i.gasLimit,
		GasPrice: attempt.Fee,
		Value:    new(big.Int),
	}

	raw, err := i.signer.Sign(ctx, req)
	if err != nil {
		i.fail(attempt, "sign", err)
		return attempt
	}

	txHash, err := i.client.SendRawTransaction(ctx, raw)
	if err != nil {
		i.fail(attempt, "submit", err)
		return attempt
	}
	_ = attempt.MarkSubmitted(txHash)
	i.log.Info("Replacement submitted", "nonce", nonce, "tx", txHash)

	receipt, err := i.client.WaitForReceipt(ctx, addr, nonce, txHash)
	if err != nil {
		i.fail(attempt, "wait for receipt", err)
		return attempt
	}
	metrics.ReceiptWait.Observe(time.Since(attempt.SubmittedAt).Seconds())
	_ = attempt.MarkConfirmed(receipt.BlockNumber)

	if receipt.Status == 0 {
		// Still consumes the nonce, which is all a replacement needs to do.
		i.log.Warn("Replacement included but reverted", "nonce", nonce, "tx", txHash)
	}
	i.log.Info("Replacement confirmed", "nonce", nonce, "tx", txHash, "block", receipt.BlockNumber)
	return attempt
}

func (i *Issuer) fail(attempt *domain.ReplacementAttempt, stage string, err error) {
	txErr := &domain.TransactionError{
		Nonce:  attempt.Nonce,
		Reason: fmt.Sprintf("%s: %v", stage, err),
		Err:    err,
	}
	_ = attempt.MarkFailed(txErr.Reason)
	i.log.Warn("Replacement failed, continuing with next nonce",
		"nonce", attempt.Nonce,
		"tx", attempt.TxHash,
		"error", txErr,
	)
}
