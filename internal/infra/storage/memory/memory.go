package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/unstuck/internal/core/domain"
	"github.com/vietddude/unstuck/internal/infra/storage"
)

var _ storage.RunRepository = (*RunRepo)(nil)

// RunRepo keeps runs for the lifetime of the process.
type RunRepo struct {
	runs     []domain.RunSummary
	attempts map[string][]domain.ReplacementAttempt
	mu       sync.RWMutex
}

func NewRunRepo() *RunRepo {
	return &RunRepo{
		attempts: make(map[string][]domain.ReplacementAttempt),
	}
}

func (r *RunRepo) Save(ctx context.Context, result *domain.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs = append(r.runs, result.Summarize())
	attempts := make([]domain.ReplacementAttempt, 0, len(result.Attempts))
	for _, a := range result.Attempts {
		attempts = append(attempts, *a)
	}
	r.attempts[result.RunID] = attempts
	return nil
}

func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.RunSummary, len(r.runs))
	copy(out, r.runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Attempts returns the stored attempts of a run.
func (r *RunRepo) Attempts(runID string) []domain.ReplacementAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attempts[runID]
}
