// Package overdue flags passes whose holders are still out after the window
// closed and notifies them once.
package overdue

import (
	"context"
	"errors"
	"log"
	"time"

	"outpass-backend/config"
	"outpass-backend/internal/model"
	"outpass-backend/internal/store"
)

// Dispatcher queues a notice for delivery.
type Dispatcher interface {
	Dispatch(n model.Notice)
}

var errAlreadyHandled = errors.New("overdue pass already handled")

// Service periodically sweeps the store for overdue passes.
type Service struct {
	cfg        *config.Config
	store      store.Store
	dispatcher Dispatcher
	now        func() time.Time
}

// NewService creates the sweeper. dispatcher may be nil when push is not
// configured; passes are still flagged.
func NewService(cfg *config.Config, s store.Store, dispatcher Dispatcher) *Service {
	return &Service{cfg: cfg, store: s, dispatcher: dispatcher, now: time.Now}
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Overdue.Enabled {
		log.Println("Overdue sweeper is disabled. Not starting.")
		return
	}
	log.Println("Starting overdue sweeper...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Overdue.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Overdue sweeper shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Overdue.Interval)
		}
	}
}

// SweepOnce flags every pass that is out past its window and not yet
// flagged, and returns how many it flagged. Flagging goes through
// compare-and-update so a pass checked in concurrently is left alone.
func (s *Service) SweepOnce(ctx context.Context) int {
	now := s.now().UTC()
	candidates, err := s.store.ListPasses(ctx, store.PassFilter{OverdueAt: &now})
	if err != nil {
		log.Printf("Error listing overdue passes: %v", err)
		return 0
	}

	flagged := 0
	for _, p := range candidates {
		updated, err := store.Mutate(ctx, s.store, p.ID, s.cfg.Approval.MaxAttempts, func(cur model.PassRequest) (store.Patch, error) {
			if !cur.IsOverdue(now) || cur.OverdueNotifiedAt != nil {
				return store.Patch{}, errAlreadyHandled
			}
			return store.Patch{OverdueNotifiedAt: &now}, nil
		})
		if errors.Is(err, errAlreadyHandled) {
			continue
		}
		if err != nil {
			log.Printf("Error flagging pass %s as overdue: %v", p.ID, err)
			continue
		}

		flagged++
		log.Printf("Pass %s is overdue (window ended %s)", updated.ID, updated.WindowTo.Format(time.RFC3339))
		if s.dispatcher != nil {
			s.dispatcher.Dispatch(model.Notice{Kind: model.NoticeOverdue, PassID: updated.ID, RequesterID: updated.RequesterID})
		}
	}
	if flagged > 0 {
		log.Printf("Overdue sweep finished: %d passes flagged.", flagged)
	}
	return flagged
}
