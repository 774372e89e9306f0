// Package approval implements the three-stage approval lifecycle of a pass
// request.
//
// A request is submitted in the awaiting-stage1 state and moves forward one
// stage per approval until the third approval makes it final. A rejection at
// any stage ends it at once. Each stage is owned by exactly one role, looked
// up in a single table, and the first two stages are additionally scoped to
// the requester's unit.
//
// Every transition is applied through store.Mutate, so two approvers racing on
// the same request never both succeed: the loser re-reads the request and finds
// the stage already decided.
package approval
