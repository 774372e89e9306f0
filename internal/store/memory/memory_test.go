package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass-backend/internal/model"
	"outpass-backend/internal/store"
)

func pending(unit string) *model.PassRequest {
	now := time.Now()
	return &model.PassRequest{
		RequesterID:    "stu-1",
		Unit:           unit,
		Category:       model.CategoryPersonal,
		Reason:         "errand",
		WindowFrom:     now,
		WindowTo:       now.Add(4 * time.Hour),
		Stage1Decision: model.DecisionPending,
		Stage2Decision: model.DecisionPending,
		Stage3Decision: model.DecisionPending,
		FinalStatus:    model.DecisionPending,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := pending("CSE")
	id, err := s.CreatePass(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.Version)

	_, err = s.CreatePass(ctx, p)
	assert.Error(t, err, "duplicate id")

	got, err := s.GetPass(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "errand", got.Reason)

	_, err = s.GetPass(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, err := s.CreatePass(ctx, pending("CSE"))
	require.NoError(t, err)

	at := time.Now()
	_, err = s.CompareAndUpdate(ctx, id, 1, store.Patch{ExitAt: &at})
	require.NoError(t, err)

	got, err := s.GetPass(ctx, id)
	require.NoError(t, err)
	*got.ExitAt = at.Add(time.Hour)

	again, err := s.GetPass(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.ExitAt.Equal(at))
}

func TestStore_CompareAndUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, err := s.CreatePass(ctx, pending("CSE"))
	require.NoError(t, err)

	at := time.Now()
	updated, err := s.CompareAndUpdate(ctx, id, 1, store.Patch{ExitAt: &at,
		Event: &model.GateEvent{Direction: model.DirectionExit, OfficerID: "sec-1", OccurredAt: at}})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), updated.Version)

	_, err = s.CompareAndUpdate(ctx, id, 1, store.Patch{EntryAt: &at})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	_, err = s.CompareAndUpdate(ctx, "nope", 1, store.Patch{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].PassID)
}

func TestStore_ConcurrentWritersOneWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, err := s.CreatePass(ctx, pending("CSE"))
	require.NoError(t, err)

	const writers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			at := time.Now()
			if _, err := s.CompareAndUpdate(ctx, id, 1, store.Patch{ExitAt: &at}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestStore_QueueAndListing(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, _ := s.CreatePass(ctx, pending("CSE"))
	b, _ := s.CreatePass(ctx, pending("CSE"))
	_, _ = s.CreatePass(ctx, pending("ECE"))

	queue, err := s.QueryByUnitAndStage(ctx, "CSE", model.Stage1)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, a, queue[0].ID)
	assert.Equal(t, b, queue[1].ID)

	_, err = s.QueryByUnitAndStage(ctx, "CSE", model.Stage(0))
	assert.Error(t, err)

	listed, err := s.ListPasses(ctx, store.PassFilter{RequesterID: "stu-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].CreatedAt.After(listed[1].CreatedAt), "newest first")
}

func TestStore_GateActivityAndSubscriptions(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.CreatePass(ctx, pending("CSE"))

	at := time.Now()
	_, err := s.CompareAndUpdate(ctx, id, 1, store.Patch{ExitAt: &at,
		Event: &model.GateEvent{Direction: model.DirectionExit, OfficerID: "sec-1", OccurredAt: at}})
	require.NoError(t, err)

	counts, err := s.CountGateActivity(ctx, at.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, store.GateCounts{Exits: 1, CurrentlyOut: 1}, counts)

	sub := model.PushSubscription{Endpoint: "e1", RequesterID: "stu-1"}
	require.NoError(t, s.SaveSubscription(ctx, sub))
	first, err := s.GetSubscription(ctx, "e1")
	require.NoError(t, err)

	sub.Auth = "rotated"
	require.NoError(t, s.SaveSubscription(ctx, sub))
	second, err := s.GetSubscription(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "rotated", second.Auth)

	require.NoError(t, s.DeleteSubscription(ctx, "e1"))
	subs, err := s.SubscriptionsFor(ctx, "stu-1")
	require.NoError(t, err)
	assert.Empty(t, subs)
}
