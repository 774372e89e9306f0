package store

import (
	"errors"
	"time"

	"outpass-backend/internal/model"
)

var (
	// ErrNotFound is returned when an id does not resolve to a record.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by CompareAndUpdate when the stored
	// version no longer matches the expected one.
	ErrVersionConflict = errors.New("version conflict")
	// ErrConcurrentUpdate is returned by Mutate once every attempt lost the
	// race. Callers may retry the whole operation.
	ErrConcurrentUpdate = errors.New("concurrent update, please retry")
)

// Patch is a conditional change to one pass request. Zero-valued fields are
// left untouched.
type Patch struct {
	// Stage selects which stage's decision fields are written.
	Stage     model.Stage
	Decision  model.Decision
	DecidedBy string
	DecidedAt time.Time
	Remark    string

	FinalStatus model.Decision

	ExitAt            *time.Time
	EntryAt           *time.Time
	OverdueNotifiedAt *time.Time

	// Event, when set, is appended to the gate ledger in the same write.
	Event *model.GateEvent
}

// columns maps the patch onto pass_requests columns.
func (p Patch) columns() map[string]any {
	cols := make(map[string]any)
	switch p.Stage {
	case model.Stage1:
		cols["stage1_decision"] = p.Decision
		cols["stage1_by"] = p.DecidedBy
		cols["stage1_at"] = p.DecidedAt
	case model.Stage2:
		cols["stage2_decision"] = p.Decision
		cols["stage2_by"] = p.DecidedBy
		cols["stage2_at"] = p.DecidedAt
	case model.Stage3:
		cols["stage3_decision"] = p.Decision
		cols["stage3_by"] = p.DecidedBy
		cols["stage3_at"] = p.DecidedAt
	}
	if p.Remark != "" {
		cols["remark"] = p.Remark
	}
	if p.FinalStatus != "" {
		cols["final_status"] = p.FinalStatus
	}
	if p.ExitAt != nil {
		cols["exit_at"] = *p.ExitAt
	}
	if p.EntryAt != nil {
		cols["entry_at"] = *p.EntryAt
	}
	if p.OverdueNotifiedAt != nil {
		cols["overdue_notified_at"] = *p.OverdueNotifiedAt
	}
	return cols
}

// Apply writes the patch onto an in-memory copy of a record.
func (p Patch) Apply(rec *model.PassRequest) {
	at := p.DecidedAt
	switch p.Stage {
	case model.Stage1:
		rec.Stage1Decision, rec.Stage1By, rec.Stage1At = p.Decision, p.DecidedBy, &at
	case model.Stage2:
		rec.Stage2Decision, rec.Stage2By, rec.Stage2At = p.Decision, p.DecidedBy, &at
	case model.Stage3:
		rec.Stage3Decision, rec.Stage3By, rec.Stage3At = p.Decision, p.DecidedBy, &at
	}
	if p.Remark != "" {
		rec.Remark = p.Remark
	}
	if p.FinalStatus != "" {
		rec.FinalStatus = p.FinalStatus
	}
	if p.ExitAt != nil {
		t := *p.ExitAt
		rec.ExitAt = &t
	}
	if p.EntryAt != nil {
		t := *p.EntryAt
		rec.EntryAt = &t
	}
	if p.OverdueNotifiedAt != nil {
		t := *p.OverdueNotifiedAt
		rec.OverdueNotifiedAt = &t
	}
}

// PassFilter narrows ListPasses. Zero-valued fields match everything.
type PassFilter struct {
	RequesterID string
	Unit        string
	// DecidedStage keeps records whose decision for that stage is recorded.
	DecidedStage model.Stage
	FinalStatus  model.Decision
	// OverdueAt keeps records still out whose window ended at or before it
	// and that have not been flagged yet.
	OverdueAt    *time.Time
	CreatedSince time.Time
	Limit        int
}

// Matches evaluates the filter against a single record.
func (f PassFilter) Matches(p model.PassRequest) bool {
	if f.RequesterID != "" && p.RequesterID != f.RequesterID {
		return false
	}
	if f.Unit != "" && p.Unit != f.Unit {
		return false
	}
	if f.DecidedStage.Valid() && !p.Decision(f.DecidedStage).IsFinal() {
		return false
	}
	if f.FinalStatus != "" && p.FinalStatus != f.FinalStatus {
		return false
	}
	if f.OverdueAt != nil && (!p.IsOverdue(*f.OverdueAt) || p.OverdueNotifiedAt != nil) {
		return false
	}
	if !f.CreatedSince.IsZero() && p.CreatedAt.Before(f.CreatedSince) {
		return false
	}
	return true
}

// GateCounts summarizes gate activity for the security dashboard.
type GateCounts struct {
	Exits        int64 `json:"exits"`
	Entries      int64 `json:"entries"`
	CurrentlyOut int64 `json:"currentlyOut"`
}

// AwaitingStage reports whether p is queued for a decision at stage s.
func AwaitingStage(p model.PassRequest, s model.Stage) bool {
	return s.Valid() && p.CurrentStage() == s
}
