package store

import (
	"context"
	"errors"

	"outpass-backend/internal/model"
	"outpass-backend/internal/obs"
)

// DefaultAttempts bounds Mutate when the caller passes a non-positive value.
const DefaultAttempts = 3

// MutateFunc inspects the current record and returns the patch to apply, or
// an error if the precondition for the change does not hold.
type MutateFunc func(cur model.PassRequest) (Patch, error)

// Mutate reads the record, asks fn for a patch and writes it conditioned on
// the version it read. On a version conflict the record is re-read and fn
// runs again, so preconditions are always checked against fresh state.
func Mutate(ctx context.Context, s Store, id string, attempts int, fn MutateFunc) (model.PassRequest, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for i := 0; i < attempts; i++ {
		cur, err := s.GetPass(ctx, id)
		if err != nil {
			return model.PassRequest{}, err
		}
		patch, err := fn(cur)
		if err != nil {
			return model.PassRequest{}, err
		}
		updated, err := s.CompareAndUpdate(ctx, id, cur.Version, patch)
		if errors.Is(err, ErrVersionConflict) {
			obs.CASConflicts.Inc()
			continue
		}
		if err != nil {
			return model.PassRequest{}, err
		}
		return updated, nil
	}
	return model.PassRequest{}, ErrConcurrentUpdate
}
