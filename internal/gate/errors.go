package gate

import (
	"errors"

	"outpass-backend/internal/store"
)

var (
	ErrNotApproved    = errors.New("pass is not approved")
	ErrAlreadyExited  = errors.New("exit already recorded")
	ErrNotExited      = errors.New("no exit recorded")
	ErrAlreadyEntered = errors.New("entry already recorded")
	// ErrInvalidInput covers a missing officer id or pass id.
	ErrInvalidInput = errors.New("invalid gate input")
	// ErrInvalidToken means the scanned payload is not a token this service
	// issued, or it has expired.
	ErrInvalidToken = errors.New("invalid token")

	ErrNotFound         = store.ErrNotFound
	ErrConcurrentUpdate = store.ErrConcurrentUpdate
)
