package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vietddude/unstuck/internal/core/domain"
)

// JSONReporter writes one JSON object per line: a run record, one record per
// attempt, then a summary record. Wei amounts are decimal strings.
type JSONReporter struct {
	enc *json.Encoder
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

type runRecord struct {
	Type           string    `json:"type"`
	RunID          string    `json:"run_id"`
	Address        string    `json:"address"`
	ChainID        uint64    `json:"chain_id,omitempty"`
	LatestNonce    uint64    `json:"latest_nonce"`
	PendingNonce   uint64    `json:"pending_nonce"`
	Gap            uint64    `json:"gap"`
	StuckNonces    []uint64  `json:"stuck_nonces"`
	Balance        string    `json:"balance,omitempty"`
	BaseFee        string    `json:"base_fee,omitempty"`
	ReplacementFee string    `json:"replacement_fee,omitempty"`
	FeeSource      string    `json:"fee_source,omitempty"`
	DryRun         bool      `json:"dry_run"`
	StartedAt      time.Time `json:"started_at"`
}

type attemptRecord struct {
	Type        string `json:"type"`
	RunID       string `json:"run_id"`
	Nonce       uint64 `json:"nonce"`
	Status      string `json:"status"`
	Fee         string `json:"fee"`
	TxHash      string `json:"tx_hash,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type summaryRecord struct {
	Type         string    `json:"type"`
	RunID        string    `json:"run_id"`
	LatestNonce  *uint64   `json:"latest_nonce,omitempty"`
	PendingNonce *uint64   `json:"pending_nonce,omitempty"`
	ResidualGap  uint64    `json:"residual_gap"`
	Confirmed    int       `json:"confirmed"`
	Failed       int       `json:"failed"`
	FinishedAt   time.Time `json:"finished_at"`
}

func (r *JSONReporter) Report(result *domain.RunResult) error {
	if result == nil || result.Before == nil {
		return fmt.Errorf("nothing to report")
	}

	before := result.Before
	run := runRecord{
		Type:         "run",
		RunID:        result.RunID,
		Address:      before.Account.Address.Hex(),
		ChainID:      result.ChainID,
		LatestNonce:  before.Account.LatestNonce,
		PendingNonce: before.Account.PendingNonce,
		Gap:          before.GapCount,
		StuckNonces:  before.StuckNonces,
		DryRun:       result.DryRun,
		StartedAt:    result.StartedAt,
	}
	if result.Balance != nil {
		run.Balance = result.Balance.String()
	}
	if q := result.Quote; q != nil {
		run.BaseFee = weiString(q.BaseFee)
		run.ReplacementFee = weiString(q.ReplacementFee)
		run.FeeSource = string(q.Source)
	}
	if err := r.enc.Encode(run); err != nil {
		return err
	}

	for _, a := range result.Attempts {
		rec := attemptRecord{
			Type:        "attempt",
			RunID:       result.RunID,
			Nonce:       a.Nonce,
			Status:      string(a.Status),
			Fee:         weiString(a.Fee),
			TxHash:      a.TxHash,
			BlockNumber: a.BlockNumber,
			Reason:      a.Reason,
		}
		if err := r.enc.Encode(rec); err != nil {
			return err
		}
	}

	summary := summaryRecord{
		Type:        "summary",
		RunID:       result.RunID,
		ResidualGap: result.ResidualGap(),
		Confirmed:   result.CountByStatus(domain.AttemptStatusConfirmed),
		Failed:      result.CountByStatus(domain.AttemptStatusFailed),
		FinishedAt:  result.FinishedAt,
	}
	if after := result.After; after != nil {
		summary.LatestNonce = &after.Account.LatestNonce
		summary.PendingNonce = &after.Account.PendingNonce
	}
	return r.enc.Encode(summary)
}
