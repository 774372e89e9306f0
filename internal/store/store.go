package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"outpass-backend/internal/ids"
	"outpass-backend/internal/model"
)

// Store defines the interface for all persistence operations. Every change to
// a pass request after creation goes through CompareAndUpdate.
type Store interface {
	CreatePass(ctx context.Context, p *model.PassRequest) (string, error)
	GetPass(ctx context.Context, id string) (model.PassRequest, error)
	CompareAndUpdate(ctx context.Context, id string, expectedVersion uint64, patch Patch) (model.PassRequest, error)
	QueryByUnitAndStage(ctx context.Context, unit string, stage model.Stage) ([]model.PassRequest, error)
	ListPasses(ctx context.Context, f PassFilter) ([]model.PassRequest, error)

	GateLog(ctx context.Context, limit int) ([]model.GateEvent, error)
	GateEventsFor(ctx context.Context, passID string) ([]model.GateEvent, error)
	CountGateActivity(ctx context.Context, since time.Time) (GateCounts, error)

	SaveSubscription(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	SubscriptionsFor(ctx context.Context, requesterID string) ([]model.PushSubscription, error)

	Ping(ctx context.Context) error
}

const (
	defaultGateLogLimit = 50
	maxGateLogLimit     = 500
)

// ClampLimit normalizes a caller-supplied gate log limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultGateLogLimit
	}
	if limit > maxGateLogLimit {
		return maxGateLogLimit
	}
	return limit
}

// monoClock hands out strictly increasing timestamps at the resolution every
// supported database keeps.
type monoClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func (c *monoClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db    *gorm.DB
	clock *monoClock
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, clock: &monoClock{now: time.Now}}
}

func (s *gormStore) CreatePass(ctx context.Context, p *model.PassRequest) (string, error) {
	now := s.clock.next()
	if p.ID == "" {
		p.ID = ids.NewAt(now)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return "", fmt.Errorf("failed to create pass request: %w", err)
	}
	return p.ID, nil
}

func (s *gormStore) GetPass(ctx context.Context, id string) (model.PassRequest, error) {
	var p model.PassRequest
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PassRequest{}, ErrNotFound
	}
	if err != nil {
		return model.PassRequest{}, fmt.Errorf("failed to load pass request %s: %w", id, err)
	}
	return p, nil
}

// CompareAndUpdate applies patch only if the stored version still equals
// expectedVersion. The version bump, the column writes and the optional gate
// event land in one transaction.
func (s *gormStore) CompareAndUpdate(ctx context.Context, id string, expectedVersion uint64, patch Patch) (model.PassRequest, error) {
	var updated model.PassRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cols := patch.columns()
		cols["version"] = expectedVersion + 1
		cols["updated_at"] = s.clock.next()

		res := tx.Model(&model.PassRequest{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(cols)
		if res.Error != nil {
			return fmt.Errorf("failed to update pass request %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.PassRequest{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return fmt.Errorf("failed to check pass request %s: %w", id, err)
			}
			if n == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		if patch.Event != nil {
			ev := *patch.Event
			ev.PassID = id
			if err := tx.Create(&ev).Error; err != nil {
				return fmt.Errorf("failed to append gate event for %s: %w", id, err)
			}
		}

		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return model.PassRequest{}, err
	}
	return updated, nil
}

// QueryByUnitAndStage returns the requests awaiting a decision at stage,
// oldest first. An empty unit matches every unit.
func (s *gormStore) QueryByUnitAndStage(ctx context.Context, unit string, stage model.Stage) ([]model.PassRequest, error) {
	q := s.db.WithContext(ctx).Model(&model.PassRequest{}).
		Where("final_status = ?", model.DecisionPending)
	if unit != "" {
		q = q.Where("unit = ?", unit)
	}

	switch stage {
	case model.Stage1:
		q = q.Where("stage1_decision = ?", model.DecisionPending)
	case model.Stage2:
		q = q.Where("stage1_decision = ? AND stage2_decision = ?", model.DecisionApproved, model.DecisionPending)
	case model.Stage3:
		q = q.Where("stage2_decision = ? AND stage3_decision = ?", model.DecisionApproved, model.DecisionPending)
	default:
		return nil, fmt.Errorf("invalid stage %d", stage)
	}

	var out []model.PassRequest
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to query stage %d queue: %w", stage, err)
	}
	return out, nil
}

// ListPasses returns the records matching f, newest first.
func (s *gormStore) ListPasses(ctx context.Context, f PassFilter) ([]model.PassRequest, error) {
	q := s.db.WithContext(ctx).Model(&model.PassRequest{})
	if f.RequesterID != "" {
		q = q.Where("requester_id = ?", f.RequesterID)
	}
	if f.Unit != "" {
		q = q.Where("unit = ?", f.Unit)
	}
	if f.DecidedStage.Valid() {
		col := fmt.Sprintf("stage%d_decision", f.DecidedStage)
		q = q.Where(col+" IN ?", []model.Decision{model.DecisionApproved, model.DecisionRejected})
	}
	if f.FinalStatus != "" {
		q = q.Where("final_status = ?", f.FinalStatus)
	}
	if f.OverdueAt != nil {
		q = q.Where("exit_at IS NOT NULL AND entry_at IS NULL AND overdue_notified_at IS NULL AND window_to <= ?", *f.OverdueAt)
	}
	if !f.CreatedSince.IsZero() {
		q = q.Where("created_at >= ?", f.CreatedSince)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []model.PassRequest
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list pass requests: %w", err)
	}
	return out, nil
}

// GateLog returns the most recent gate events, newest first.
func (s *gormStore) GateLog(ctx context.Context, limit int) ([]model.GateEvent, error) {
	var out []model.GateEvent
	if err := s.db.WithContext(ctx).
		Order("occurred_at DESC").Order("id DESC").
		Limit(ClampLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to read gate log: %w", err)
	}
	return out, nil
}

func (s *gormStore) GateEventsFor(ctx context.Context, passID string) ([]model.GateEvent, error) {
	var out []model.GateEvent
	if err := s.db.WithContext(ctx).
		Where("pass_id = ?", passID).
		Order("occurred_at ASC").Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to read gate events for %s: %w", passID, err)
	}
	return out, nil
}

// CountGateActivity aggregates crossings since the given instant and counts
// the passes whose holders are currently out.
func (s *gormStore) CountGateActivity(ctx context.Context, since time.Time) (GateCounts, error) {
	type aggRow struct {
		Direction model.Direction
		Total     int64
	}
	var rows []aggRow
	if err := s.db.WithContext(ctx).
		Model(&model.GateEvent{}).
		Select("direction, COUNT(*) as total").
		Where("occurred_at >= ?", since).
		Group("direction").
		Scan(&rows).Error; err != nil {
		return GateCounts{}, fmt.Errorf("failed to aggregate gate events: %w", err)
	}

	var counts GateCounts
	for _, r := range rows {
		switch r.Direction {
		case model.DirectionExit:
			counts.Exits = r.Total
		case model.DirectionEntry:
			counts.Entries = r.Total
		}
	}

	if err := s.db.WithContext(ctx).
		Model(&model.PassRequest{}).
		Where("exit_at IS NOT NULL AND entry_at IS NULL").
		Count(&counts.CurrentlyOut).Error; err != nil {
		return GateCounts{}, fmt.Errorf("failed to count passes out: %w", err)
	}
	return counts, nil
}

func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"requester_id", "p256dh", "auth"}),
	}).Create(&sub).Error
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PushSubscription{}, ErrNotFound
	}
	return sub, err
}

func (s *gormStore) SubscriptionsFor(ctx context.Context, requesterID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("requester_id = ?", requesterID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for %s: %w", requesterID, err)
	}
	return subs, nil
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
