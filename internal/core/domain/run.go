package domain

import (
	"math/big"
	"time"
)

// RunResult is everything one invocation observed and did.
type RunResult struct {
	RunID      string
	ChainID    uint64
	Before     *NonceGapReport
	Balance    *big.Int // nil when the balance read failed
	Quote      *GasQuote
	Attempts   []*ReplacementAttempt
	After      *NonceGapReport
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// ResidualGap is the gap left after the run.
func (r *RunResult) ResidualGap() uint64 {
	if r.After != nil {
		return r.After.GapCount
	}
	if r.Before != nil {
		return r.Before.GapCount
	}
	return 0
}

// CountByStatus returns how many attempts ended in the given status.
func (r *RunResult) CountByStatus(status AttemptStatus) int {
	n := 0
	for _, a := range r.Attempts {
		if a.Status == status {
			n++
		}
	}
	return n
}

// RunSummary is the stored, flattened view of a finished run.
type RunSummary struct {
	RunID       string    `db:"run_id"`
	ChainID     uint64    `db:"chain_id"`
	Address     string    `db:"address"`
	GapBefore   uint64    `db:"gap_before"`
	ResidualGap uint64    `db:"residual_gap"`
	Confirmed   int       `db:"confirmed"`
	Failed      int       `db:"failed"`
	DryRun      bool      `db:"dry_run"`
	StartedAt   time.Time `db:"started_at"`
	FinishedAt  time.Time `db:"finished_at"`
}

// Summarize flattens a run for storage.
func (r *RunResult) Summarize() RunSummary {
	s := RunSummary{
		RunID:       r.RunID,
		ChainID:     r.ChainID,
		ResidualGap: r.ResidualGap(),
		Confirmed:   r.CountByStatus(AttemptStatusConfirmed),
		Failed:      r.CountByStatus(AttemptStatusFailed),
		DryRun:      r.DryRun,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if r.Before != nil {
		s.Address = r.Before.Account.Address.Hex()
		s.GapBefore = r.Before.GapCount
	}
	return s
}
