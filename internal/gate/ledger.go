// Package gate records physical crossings against approved passes.
package gate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"outpass-backend/internal/model"
	"outpass-backend/internal/obs"
	"outpass-backend/internal/store"
)

// Options configures a Ledger.
type Options struct {
	MaxAttempts int
	Logger      *log.Logger
	Now         func() time.Time
}

// Ledger is the only writer of a pass's exit and entry fields. Each crossing
// sets the field and appends its event in one version-checked write.
type Ledger struct {
	store    store.Store
	attempts int
	logger   *log.Logger
	now      func() time.Time
}

func NewLedger(s store.Store, opts Options) *Ledger {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = store.DefaultAttempts
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Ledger{store: s, attempts: opts.MaxAttempts, logger: opts.Logger, now: opts.Now}
}

// RecordExit checks the holder of an approved pass out.
func (l *Ledger) RecordExit(ctx context.Context, id, officerID string) (model.PassRequest, error) {
	return l.record(ctx, id, officerID, model.DirectionExit, func(cur model.PassRequest) error {
		if cur.FinalStatus != model.DecisionApproved {
			return fmt.Errorf("%w: pass %s is %s", ErrNotApproved, cur.ID, cur.FinalStatus)
		}
		if cur.ExitAt != nil {
			return fmt.Errorf("%w: pass %s left at %s", ErrAlreadyExited, cur.ID, cur.ExitAt.Format(time.RFC3339))
		}
		return nil
	})
}

// RecordEntry checks the holder back in after an exit.
func (l *Ledger) RecordEntry(ctx context.Context, id, officerID string) (model.PassRequest, error) {
	return l.record(ctx, id, officerID, model.DirectionEntry, func(cur model.PassRequest) error {
		if cur.ExitAt == nil {
			return fmt.Errorf("%w: pass %s", ErrNotExited, cur.ID)
		}
		if cur.EntryAt != nil {
			return fmt.Errorf("%w: pass %s returned at %s", ErrAlreadyEntered, cur.ID, cur.EntryAt.Format(time.RFC3339))
		}
		return nil
	})
}

func (l *Ledger) record(ctx context.Context, id, officerID string, dir model.Direction, check func(model.PassRequest) error) (model.PassRequest, error) {
	officerID = strings.TrimSpace(officerID)
	if strings.TrimSpace(id) == "" || officerID == "" {
		return model.PassRequest{}, fmt.Errorf("%w: pass id and officer id are required", ErrInvalidInput)
	}

	updated, err := store.Mutate(ctx, l.store, id, l.attempts, func(cur model.PassRequest) (store.Patch, error) {
		if err := check(cur); err != nil {
			return store.Patch{}, err
		}
		at := l.now().UTC()
		patch := store.Patch{
			Event: &model.GateEvent{
				PassID:     cur.ID,
				Direction:  dir,
				OfficerID:  officerID,
				OccurredAt: at,
			},
		}
		if dir == model.DirectionExit {
			patch.ExitAt = &at
		} else {
			patch.EntryAt = &at
		}
		return patch, nil
	})
	if err != nil {
		return model.PassRequest{}, err
	}

	obs.GateEvents.WithLabelValues(string(dir)).Inc()
	l.logger.Printf("pass %s %s recorded by %s", id, dir, officerID)
	return updated, nil
}

// Lookup returns the pass for a scanned id without changing it.
func (l *Ledger) Lookup(ctx context.Context, id string) (model.PassRequest, error) {
	return l.store.GetPass(ctx, id)
}

// Log returns the most recent crossings across all passes.
func (l *Ledger) Log(ctx context.Context, limit int) ([]model.GateEvent, error) {
	return l.store.GateLog(ctx, limit)
}

// Events returns the crossings of one pass in the order they happened.
func (l *Ledger) Events(ctx context.Context, passID string) ([]model.GateEvent, error) {
	if _, err := l.store.GetPass(ctx, passID); err != nil {
		return nil, err
	}
	return l.store.GateEventsFor(ctx, passID)
}

// Stats counts today's crossings, with the day starting at local midnight in
// loc, and the passes currently out.
func (l *Ledger) Stats(ctx context.Context, loc *time.Location) (store.GateCounts, error) {
	if loc == nil {
		loc = time.UTC
	}
	now := l.now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return l.store.CountGateActivity(ctx, midnight.UTC())
}
