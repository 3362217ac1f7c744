package domain

import (
	"fmt"
	"math/big"
	"time"
)

type AttemptStatus string

const (
	AttemptStatusCreated   AttemptStatus = "created"
	AttemptStatusSubmitted AttemptStatus = "submitted"
	AttemptStatusConfirmed AttemptStatus = "confirmed"
	AttemptStatusFailed    AttemptStatus = "failed"
)

// ReplacementAttempt tracks one replacement transaction for one stuck nonce.
//
// Lifecycle: created -> submitted -> confirmed|failed. An attempt that never
// reaches the node goes straight from created to failed.
type ReplacementAttempt struct {
	Nonce       uint64
	Fee         *big.Int
	TxHash      string
	Status      AttemptStatus
	Reason      string
	BlockNumber uint64
	CreatedAt   time.Time
	SubmittedAt time.Time
	FinishedAt  time.Time
}

// NewReplacementAttempt creates an attempt in the created state.
func NewReplacementAttempt(nonce uint64, fee *big.Int) *ReplacementAttempt {
	return &ReplacementAttempt{
		Nonce:     nonce,
		Fee:       fee,
		Status:    AttemptStatusCreated,
		CreatedAt: time.Now(),
	}
}

// MarkSubmitted records that the node accepted the transaction.
func (a *ReplacementAttempt) MarkSubmitted(txHash string) error {
	if a.Status != AttemptStatusCreated {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, AttemptStatusSubmitted)
	}
	a.TxHash = txHash
	a.Status = AttemptStatusSubmitted
	a.SubmittedAt = time.Now()
	return nil
}

// MarkConfirmed records the first confirmation.
func (a *ReplacementAttempt) MarkConfirmed(blockNumber uint64) error {
	if a.Status != AttemptStatusSubmitted {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, AttemptStatusConfirmed)
	}
	a.BlockNumber = blockNumber
	a.Status = AttemptStatusConfirmed
	a.FinishedAt = time.Now()
	return nil
}

// MarkFailed records a terminal failure with its reason.
func (a *ReplacementAttempt) MarkFailed(reason string) error {
	if a.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, AttemptStatusFailed)
	}
	a.Reason = reason
	a.Status = AttemptStatusFailed
	a.FinishedAt = time.Now()
	return nil
}

func (a *ReplacementAttempt) IsTerminal() bool {
	return a.Status == AttemptStatusConfirmed || a.Status == AttemptStatusFailed
}
