package storage

import (
	"context"

	"github.com/vietddude/unstuck/internal/core/domain"
)

// RunRepository stores finished reconciliation runs for auditing.
// Nothing reads it back to drive a run.
type RunRepository interface {
	// Save stores the run and its attempts
	Save(ctx context.Context, result *domain.RunResult) error

	// ListRecent returns the newest runs first, at most limit of them
	ListRecent(ctx context.Context, limit int) ([]domain.RunSummary, error)
}
