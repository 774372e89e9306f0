package model

// Decision is the outcome recorded for one stage, and also the derived final
// status of the whole request.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// IsFinal reports whether d is a decision an approver can record.
func (d Decision) IsFinal() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Category classifies the purpose of a pass.
type Category string

const (
	CategoryMedical   Category = "medical"
	CategoryHomeVisit Category = "home-visit"
	CategoryAcademic  Category = "academic"
	CategoryPersonal  Category = "personal"
	CategoryOther     Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMedical, CategoryHomeVisit, CategoryAcademic, CategoryPersonal, CategoryOther:
		return true
	}
	return false
}

// Stage is one of the three ordered approval checkpoints.
type Stage int

const (
	StageNone Stage = 0
	Stage1    Stage = 1 // first-line approver
	Stage2    Stage = 2 // department approver
	Stage3    Stage = 3 // facility approver
)

// Stages lists the approval stages in order.
var Stages = []Stage{Stage1, Stage2, Stage3}

// Valid reports whether s names a real approval stage.
func (s Stage) Valid() bool {
	return s >= Stage1 && s <= Stage3
}

// Presence is the physical location of a pass holder relative to the gate.
type Presence string

const (
	PresenceNotYetOut Presence = "not-yet-out"
	PresenceOut       Presence = "out"
	PresenceReturned  Presence = "returned"
)

// Direction is the way a gate crossing goes.
type Direction string

const (
	DirectionExit  Direction = "exit"
	DirectionEntry Direction = "entry"
)
