package approval

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"outpass-backend/internal/model"
	"outpass-backend/internal/obs"
	"outpass-backend/internal/store"
)

// Notifier receives a notice when a request reaches a terminal outcome.
type Notifier interface {
	Dispatch(n model.Notice)
}

// Options configures a Machine. Zero values are replaced with defaults.
type Options struct {
	MaxAttempts int
	Notifier    Notifier
	Logger      *log.Logger
	Now         func() time.Time
}

// Machine validates and applies approval transitions.
type Machine struct {
	store    store.Store
	attempts int
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// NewMachine creates a state machine backed by s.
func NewMachine(s store.Store, opts Options) *Machine {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = store.DefaultAttempts
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		store:    s,
		attempts: opts.MaxAttempts,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// SubmitInput is the content of a new pass request.
type SubmitInput struct {
	RequesterID string
	Unit        string
	Category    model.Category
	Reason      string
	From        time.Time
	To          time.Time
}

func (in SubmitInput) validate() error {
	var problems []string
	if strings.TrimSpace(in.RequesterID) == "" {
		problems = append(problems, "requester id is required")
	}
	if strings.TrimSpace(in.Unit) == "" {
		problems = append(problems, "unit is required")
	}
	if !in.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", in.Category))
	}
	if strings.TrimSpace(in.Reason) == "" {
		problems = append(problems, "reason is required")
	}
	if !in.From.Before(in.To) {
		problems = append(problems, "window start must be before window end")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Submit records a new request awaiting stage 1.
func (m *Machine) Submit(ctx context.Context, in SubmitInput) (model.PassRequest, error) {
	if err := in.validate(); err != nil {
		return model.PassRequest{}, err
	}

	p := model.PassRequest{
		RequesterID:    in.RequesterID,
		Unit:           in.Unit,
		Category:       in.Category,
		Reason:         strings.TrimSpace(in.Reason),
		WindowFrom:     in.From.UTC(),
		WindowTo:       in.To.UTC(),
		Stage1Decision: model.DecisionPending,
		Stage2Decision: model.DecisionPending,
		Stage3Decision: model.DecisionPending,
		FinalStatus:    model.DecisionPending,
	}
	if _, err := m.store.CreatePass(ctx, &p); err != nil {
		return model.PassRequest{}, err
	}
	m.logger.Printf("pass %s submitted by %s (unit %s, %s)", p.ID, p.RequesterID, p.Unit, p.Category)
	return p, nil
}

// Decide records actor's decision for the stage the request awaits.
func (m *Machine) Decide(ctx context.Context, id string, actor model.Actor, decision model.Decision, remark string) (model.PassRequest, error) {
	if !decision.IsFinal() {
		return model.PassRequest{}, fmt.Errorf("%w: decision must be approved or rejected, got %q", ErrValidation, decision)
	}
	binding, ok := StageFor(actor.Role)
	if !ok {
		return model.PassRequest{}, fmt.Errorf("%w: role %q decides no stage", ErrStageMismatch, actor.Role)
	}
	remark = strings.TrimSpace(remark)

	updated, err := store.Mutate(ctx, m.store, id, m.attempts, func(cur model.PassRequest) (store.Patch, error) {
		if binding.UnitScoped && cur.Unit != actor.Unit {
			return store.Patch{}, fmt.Errorf("%w: pass %s belongs to unit %q", ErrStageMismatch, cur.ID, cur.Unit)
		}
		if cur.IsTerminal() {
			return store.Patch{}, fmt.Errorf("%w: pass %s is %s", ErrAlreadyTerminal, cur.ID, cur.FinalStatus)
		}
		// A stage that already has a decision is final for its approver; this
		// is also what the loser of a race on the same stage sees.
		if cur.Decision(binding.Stage).IsFinal() {
			return store.Patch{}, fmt.Errorf("%w: pass %s stage %d", ErrAlreadyTerminal, cur.ID, binding.Stage)
		}
		if s := cur.CurrentStage(); s != binding.Stage {
			return store.Patch{}, fmt.Errorf("%w: pass %s awaits stage %d, %s decides stage %d",
				ErrStageMismatch, cur.ID, s, actor.Role, binding.Stage)
		}

		patch := store.Patch{
			Stage:     binding.Stage,
			Decision:  decision,
			DecidedBy: actor.ID,
			DecidedAt: m.now().UTC(),
			Remark:    remark,
		}
		switch {
		case decision == model.DecisionRejected:
			patch.FinalStatus = model.DecisionRejected
		case binding.Stage == model.Stage3:
			patch.FinalStatus = model.DecisionApproved
		}
		return patch, nil
	})
	if err != nil {
		return model.PassRequest{}, err
	}

	obs.Decisions.WithLabelValues(strconv.Itoa(int(binding.Stage)), string(decision)).Inc()
	m.logger.Printf("pass %s stage %d %s by %s", id, binding.Stage, decision, actor.ID)

	if updated.IsTerminal() && m.notifier != nil {
		kind := model.NoticeApproved
		if updated.FinalStatus == model.DecisionRejected {
			kind = model.NoticeRejected
		}
		m.notifier.Dispatch(model.Notice{Kind: kind, PassID: updated.ID, RequesterID: updated.RequesterID})
	}
	return updated, nil
}

// ListPending returns the requests awaiting stage in unit, oldest first. An
// empty unit lists every unit.
func (m *Machine) ListPending(ctx context.Context, unit string, stage model.Stage) ([]model.PassRequest, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: invalid stage %d", ErrValidation, stage)
	}
	return m.store.QueryByUnitAndStage(ctx, unit, stage)
}

// PendingFor is ListPending for the stage and unit the actor's role owns.
func (m *Machine) PendingFor(ctx context.Context, actor model.Actor) ([]model.PassRequest, error) {
	binding, ok := StageFor(actor.Role)
	if !ok {
		return nil, fmt.Errorf("%w: role %q decides no stage", ErrForbidden, actor.Role)
	}
	unit, err := scopeUnit(binding, actor)
	if err != nil {
		return nil, err
	}
	return m.ListPending(ctx, unit, binding.Stage)
}

func (m *Machine) GetPass(ctx context.Context, id string) (model.PassRequest, error) {
	return m.store.GetPass(ctx, id)
}

// PassFor is GetPass limited to what actor may see: students their own
// requests, mentors and HODs their unit's, wardens and security every pass.
// A pass outside that scope reads as not found.
func (m *Machine) PassFor(ctx context.Context, actor model.Actor, id string) (model.PassRequest, error) {
	p, err := m.store.GetPass(ctx, id)
	if err != nil {
		return model.PassRequest{}, err
	}
	if !canView(actor, p) {
		return model.PassRequest{}, fmt.Errorf("%w: pass %s is outside %s's scope", ErrNotFound, id, actor.ID)
	}
	return p, nil
}

func canView(a model.Actor, p model.PassRequest) bool {
	if a.Role == model.RoleStudent {
		return p.RequesterID == a.ID
	}
	if b, ok := StageFor(a.Role); ok && b.UnitScoped {
		return a.Unit != "" && p.Unit == a.Unit
	}
	return true
}

// ListMine returns the requester's own requests, newest first.
func (m *Machine) ListMine(ctx context.Context, requesterID string, limit int) ([]model.PassRequest, error) {
	return m.store.ListPasses(ctx, store.PassFilter{RequesterID: requesterID, Limit: limit})
}

// ActivePass returns the newest approved request the holder can still use:
// they are out, or they have not left and the window is still open.
func (m *Machine) ActivePass(ctx context.Context, requesterID string) (model.PassRequest, error) {
	approved, err := m.store.ListPasses(ctx, store.PassFilter{
		RequesterID: requesterID,
		FinalStatus: model.DecisionApproved,
	})
	if err != nil {
		return model.PassRequest{}, err
	}
	now := m.now()
	for _, p := range approved {
		switch p.Presence() {
		case model.PresenceOut:
			return p, nil
		case model.PresenceNotYetOut:
			// Never used and no longer usable.
			if p.WindowTo.After(now) {
				return p, nil
			}
		}
	}
	return model.PassRequest{}, fmt.Errorf("%w: no active pass for %s", ErrNotFound, requesterID)
}

// History lists the requests decided at the actor's stage, newest first.
func (m *Machine) History(ctx context.Context, actor model.Actor, limit int) ([]model.PassRequest, error) {
	binding, ok := StageFor(actor.Role)
	if !ok {
		return nil, fmt.Errorf("%w: role %q decides no stage", ErrForbidden, actor.Role)
	}
	unit, err := scopeUnit(binding, actor)
	if err != nil {
		return nil, err
	}
	return m.store.ListPasses(ctx, store.PassFilter{
		Unit:         unit,
		DecidedStage: binding.Stage,
		Limit:        limit,
	})
}

// scopeUnit returns the unit filter for an approver's queries. Unit-scoped
// roles never fall through to the all-units query.
func scopeUnit(b StageBinding, a model.Actor) (string, error) {
	if !b.UnitScoped {
		return "", nil
	}
	if a.Unit == "" {
		return "", fmt.Errorf("%w: role %q requires a unit", ErrForbidden, a.Role)
	}
	return a.Unit, nil
}
