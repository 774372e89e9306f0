package approval

import "outpass-backend/internal/model"

// StageBinding ties a role to the stage it decides.
type StageBinding struct {
	Stage model.Stage
	// UnitScoped requires the actor's unit to equal the request's unit.
	UnitScoped bool
}

var stageTable = map[model.Role]StageBinding{
	model.RoleMentor: {Stage: model.Stage1, UnitScoped: true},
	model.RoleHOD:    {Stage: model.Stage2, UnitScoped: true},
	model.RoleWarden: {Stage: model.Stage3},
}

// StageFor returns the stage a role decides. Roles that decide nothing
// report false.
func StageFor(r model.Role) (StageBinding, bool) {
	b, ok := stageTable[r]
	return b, ok
}

// RoleFor returns the role that owns stage s.
func RoleFor(s model.Stage) model.Role {
	for r, b := range stageTable {
		if b.Stage == s {
			return r
		}
	}
	return ""
}
