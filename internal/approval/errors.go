package approval

import (
	"errors"

	"outpass-backend/internal/store"
)

var (
	// ErrValidation wraps every input problem found by Submit or Decide.
	ErrValidation = errors.New("validation error")
	// ErrStageMismatch means the actor's role or unit does not own the stage
	// the request is waiting on.
	ErrStageMismatch = errors.New("not authorized for this stage")
	// ErrAlreadyTerminal means the request is already approved or rejected.
	ErrAlreadyTerminal = errors.New("already decided")
	// ErrForbidden means the actor's role may not perform the operation at all.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound         = store.ErrNotFound
	ErrConcurrentUpdate = store.ErrConcurrentUpdate
)
