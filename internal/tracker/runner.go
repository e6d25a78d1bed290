package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwise1/geoplaylists/internal/model"
	"github.com/google/uuid"
)

const maxSwapAttempts = 3

// Runner evaluates samples against one baseline. The foreground path gets a
// MemoryBaseline and the background path a RedisBaseline; they never share state.
type Runner struct {
	baseline Baseline
}

func NewRunner(b Baseline) *Runner {
	return &Runner{baseline: b}
}

// Step evaluates sample for userID and advances the stored baseline. The returned
// Entered set only contains ids that were not in the stored baseline, so a zone
// already recorded as active is never reported again.
func (r *Runner) Step(ctx context.Context, userID uuid.UUID, sample Sample, zones []model.Zone) (Result, error) {
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		prev, err := r.baseline.Load(ctx, userID)
		if err != nil {
			return Result{}, err
		}

		res := Evaluate(sample, zones, prev)

		err = r.baseline.CompareAndSwap(ctx, userID, prev, res.Active)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		return res, nil
	}
	return Result{}, fmt.Errorf("advancing baseline for %s: %w", userID, ErrConflict)
}

func (r *Runner) Reset(ctx context.Context, userID uuid.UUID) error {
	return r.baseline.Clear(ctx, userID)
}
