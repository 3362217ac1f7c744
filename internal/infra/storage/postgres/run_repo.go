package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/storage"
)

var _ storage.RunRepository = (*RunRepo)(nil)

// RunRepo implements storage.RunRepository using PostgreSQL.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new PostgreSQL run repository.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

type runRow struct {
	domain.RunSummary
	BaseFee        sql.NullString `db:"base_fee"`
	ReplacementFee sql.NullString `db:"replacement_fee"`
	FeeSource      sql.NullString `db:"fee_source"`
}

type attemptRow struct {
	RunID       string         `db:"run_id"`
	Nonce       uint64         `db:"nonce"`
	Fee         string         `db:"fee"`
	TxHash      sql.NullString `db:"tx_hash"`
	Status      string         `db:"status"`
	Reason      sql.NullString `db:"reason"`
	BlockNumber sql.NullInt64  `db:"block_number"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	FinishedAt  sql.NullTime   `db:"finished_at"`
}

const insertRun = `
INSERT INTO reconcile_runs (
	run_id, chain_id, address, gap_before, residual_gap, confirmed, failed, dry_run,
	base_fee, replacement_fee, fee_source, started_at, finished_at
) VALUES (
	:run_id, :chain_id, :address, :gap_before, :residual_gap, :confirmed, :failed, :dry_run,
	:base_fee, :replacement_fee, :fee_source, :started_at, :finished_at
)`

const insertAttempt = `
INSERT INTO replacement_attempts (
	run_id, nonce, fee, tx_hash, status, reason, block_number, created_at, finished_at
) VALUES (
	:run_id, :nonce, :fee, :tx_hash, :status, :reason, :block_number, :created_at, :finished_at
)`

// Save writes the run and all of its attempts in one transaction.
func (r *RunRepo) Save(ctx context.Context, result *domain.RunResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := runRow{RunSummary: result.Summarize()}
	if q := result.Quote; q != nil {
		row.BaseFee = nullString(q.BaseFee.String())
		row.ReplacementFee = nullString(q.ReplacementFee.String())
		row.FeeSource = nullString(string(q.Source))
	}
	if _, err := tx.NamedExecContext(ctx, insertRun, row); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, a := range result.Attempts {
		if _, err := tx.NamedExecContext(ctx, insertAttempt, toAttemptRow(result.RunID, a)); err != nil {
			return fmt.Errorf("failed to save attempt for nonce %d: %w", a.Nonce, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRecent returns the newest runs first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []domain.RunSummary
	err := r.db.SelectContext(ctx, &runs, `
		SELECT run_id, chain_id, address, gap_before, residual_gap, confirmed, failed,
		       dry_run, started_at, finished_at
		FROM reconcile_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func toAttemptRow(runID string, a *domain.ReplacementAttempt) attemptRow {
	row := attemptRow{
		RunID:     runID,
		Nonce:     a.Nonce,
		Fee:       a.Fee.String(),
		TxHash:    nullString(a.TxHash),
		Status:    string(a.Status),
		Reason:    nullString(a.Reason),
		CreatedAt: sql.NullTime{Time: a.CreatedAt, Valid: !a.CreatedAt.IsZero()},
	}
	if a.BlockNumber != 0 {
		row.BlockNumber = sql.NullInt64{Int64: int64(a.BlockNumber), Valid: true}
	}
	if !a.FinishedAt.IsZero() {
		row.FinishedAt = sql.NullTime{Time: a.FinishedAt, Valid: true}
	}
	return row
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
