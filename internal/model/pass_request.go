package model

import "time"

// PassRequest is a single leave pass moving through the three approval
// stages and, once approved, through the gate.
type PassRequest struct {
	ID          string   `gorm:"primaryKey;size:26" json:"id"`
	RequesterID string   `gorm:"index;size:128;not null" json:"requesterId"`
	Unit        string   `gorm:"index:idx_pass_unit_stage,priority:1;size:128;not null" json:"unit"`
	Category    Category `gorm:"size:32;not null" json:"category"`
	Reason      string   `gorm:"type:text;not null" json:"reason"`

	WindowFrom time.Time `gorm:"not null" json:"from"`
	WindowTo   time.Time `gorm:"not null" json:"to"`

	Stage1Decision Decision   `gorm:"column:stage1_decision;index:idx_pass_unit_stage,priority:2;size:16;not null" json:"stage1Decision"`
	Stage1By       string     `gorm:"column:stage1_by;size:128" json:"stage1By,omitempty"`
	Stage1At       *time.Time `gorm:"column:stage1_at" json:"stage1At,omitempty"`
	Stage2Decision Decision   `gorm:"column:stage2_decision;index:idx_pass_unit_stage,priority:3;size:16;not null" json:"stage2Decision"`
	Stage2By       string     `gorm:"column:stage2_by;size:128" json:"stage2By,omitempty"`
	Stage2At       *time.Time `gorm:"column:stage2_at" json:"stage2At,omitempty"`
	Stage3Decision Decision   `gorm:"column:stage3_decision;index;size:16;not null" json:"stage3Decision"`
	Stage3By       string     `gorm:"column:stage3_by;size:128" json:"stage3By,omitempty"`
	Stage3At       *time.Time `gorm:"column:stage3_at" json:"stage3At,omitempty"`
	Remark         string     `gorm:"type:text" json:"remark,omitempty"`

	FinalStatus Decision `gorm:"index;size:16;not null" json:"finalStatus"`

	ExitAt            *time.Time `gorm:"index" json:"exitAt,omitempty"`
	EntryAt           *time.Time `json:"entryAt,omitempty"`
	OverdueNotifiedAt *time.Time `json:"overdueNotifiedAt,omitempty"`

	Version   uint64    `gorm:"not null" json:"version"`
	CreatedAt time.Time `gorm:"index;not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// Decision returns the recorded decision for the given stage.
func (p PassRequest) Decision(s Stage) Decision {
	switch s {
	case Stage1:
		return p.Stage1Decision
	case Stage2:
		return p.Stage2Decision
	case Stage3:
		return p.Stage3Decision
	}
	return ""
}

// IsTerminal reports whether the approval outcome can no longer change.
func (p PassRequest) IsTerminal() bool {
	return p.FinalStatus == DecisionApproved || p.FinalStatus == DecisionRejected
}

// CurrentStage returns the stage awaiting a decision, or StageNone once the
// request is terminal.
func (p PassRequest) CurrentStage() Stage {
	if p.IsTerminal() {
		return StageNone
	}
	for _, s := range Stages {
		if p.Decision(s) != DecisionApproved {
			return s
		}
	}
	return StageNone
}

// Presence derives the holder's location from the gate timestamps.
func (p PassRequest) Presence() Presence {
	switch {
	case p.ExitAt == nil:
		return PresenceNotYetOut
	case p.EntryAt == nil:
		return PresenceOut
	default:
		return PresenceReturned
	}
}

// IsOverdue reports whether the holder is still out after the window closed.
func (p PassRequest) IsOverdue(now time.Time) bool {
	return p.Presence() == PresenceOut && !now.Before(p.WindowTo)
}
