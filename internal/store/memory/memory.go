package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"outpass-backend/internal/ids"
	"outpass-backend/internal/model"
	"outpass-backend/internal/store"
)

// Store is an in-memory implementation of store.Store with the same
// compare-and-update semantics as the GORM store. It is intended for tests
// and dev environments.
type Store struct {
	mu     sync.RWMutex
	passes map[string]model.PassRequest
	events []model.GateEvent
	subs   map[string]model.PushSubscription
	lastTS time.Time
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		passes: make(map[string]model.PassRequest),
		subs:   make(map[string]model.PushSubscription),
		now:    time.Now,
	}
}

// nextTime must be called with mu held.
func (s *Store) nextTime() time.Time {
	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.lastTS) {
		t = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = t
	return t
}

func (s *Store) CreatePass(_ context.Context, p *model.PassRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nextTime()
	if p.ID == "" {
		p.ID = ids.NewAt(now)
	}
	if _, exists := s.passes[p.ID]; exists {
		return "", fmt.Errorf("pass request %s already exists", p.ID)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1
	s.passes[p.ID] = clonePass(*p)
	return p.ID, nil
}

func (s *Store) GetPass(_ context.Context, id string) (model.PassRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passes[id]
	if !ok {
		return model.PassRequest{}, store.ErrNotFound
	}
	return clonePass(p), nil
}

func (s *Store) CompareAndUpdate(_ context.Context, id string, expectedVersion uint64, patch store.Patch) (model.PassRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passes[id]
	if !ok {
		return model.PassRequest{}, store.ErrNotFound
	}
	if p.Version != expectedVersion {
		return model.PassRequest{}, store.ErrVersionConflict
	}

	patch.Apply(&p)
	p.Version = expectedVersion + 1
	p.UpdatedAt = s.nextTime()
	s.passes[id] = p

	if patch.Event != nil {
		ev := *patch.Event
		ev.ID = int64(len(s.events) + 1)
		ev.PassID = id
		s.events = append(s.events, ev)
	}
	return clonePass(p), nil
}

func (s *Store) QueryByUnitAndStage(_ context.Context, unit string, stage model.Stage) ([]model.PassRequest, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("invalid stage %d", stage)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.PassRequest
	for _, p := range s.passes {
		if unit != "" && p.Unit != unit {
			continue
		}
		if store.AwaitingStage(p, stage) {
			out = append(out, clonePass(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListPasses(_ context.Context, f store.PassFilter) ([]model.PassRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.PassRequest
	for _, p := range s.passes {
		if f.Matches(p) {
			out = append(out, clonePass(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GateLog(_ context.Context, limit int) ([]model.GateEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = store.ClampLimit(limit)
	out := make([]model.GateEvent, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *Store) GateEventsFor(_ context.Context, passID string) ([]model.GateEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.GateEvent
	for _, ev := range s.events {
		if ev.PassID == passID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) CountGateActivity(_ context.Context, since time.Time) (store.GateCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts store.GateCounts
	for _, ev := range s.events {
		if ev.OccurredAt.Before(since) {
			continue
		}
		switch ev.Direction {
		case model.DirectionExit:
			counts.Exits++
		case model.DirectionEntry:
			counts.Entries++
		}
	}
	for _, p := range s.passes {
		if p.Presence() == model.PresenceOut {
			counts.CurrentlyOut++
		}
	}
	return counts, nil
}

func (s *Store) SaveSubscription(_ context.Context, sub model.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.subs[sub.Endpoint]; ok {
		sub.CreatedAt = old.CreatedAt
	} else if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, endpoint)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, endpoint string) (model.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[endpoint]
	if !ok {
		return model.PushSubscription{}, store.ErrNotFound
	}
	return sub, nil
}

func (s *Store) SubscriptionsFor(_ context.Context, requesterID string) ([]model.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PushSubscription
	for _, sub := range s.subs {
		if sub.RequesterID == requesterID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Events returns a copy of every recorded gate event. Test-only helper.
func (s *Store) Events() []model.GateEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.GateEvent, len(s.events))
	copy(out, s.events)
	return out
}

// clonePass deep-copies the pointer fields so callers never share state with
// the map.
func clonePass(p model.PassRequest) model.PassRequest {
	p.Stage1At = cloneTime(p.Stage1At)
	p.Stage2At = cloneTime(p.Stage2At)
	p.Stage3At = cloneTime(p.Stage3At)
	p.ExitAt = cloneTime(p.ExitAt)
	p.EntryAt = cloneTime(p.EntryAt)
	p.OverdueNotifiedAt = cloneTime(p.OverdueNotifiedAt)
	return p
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
