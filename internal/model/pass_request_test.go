package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newPending() PassRequest {
	return PassRequest{
		Stage1Decision: DecisionPending,
		Stage2Decision: DecisionPending,
		Stage3Decision: DecisionPending,
		FinalStatus:    DecisionPending,
	}
}

func TestPassRequest_CurrentStage(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(p *PassRequest)
		expected Stage
	}{
		{
			name:     "Fresh request awaits stage 1",
			mutate:   func(p *PassRequest) {},
			expected: Stage1,
		},
		{
			name:     "Stage 1 approved awaits stage 2",
			mutate:   func(p *PassRequest) { p.Stage1Decision = DecisionApproved },
			expected: Stage2,
		},
		{
			name: "Stage 2 approved awaits stage 3",
			mutate: func(p *PassRequest) {
				p.Stage1Decision = DecisionApproved
				p.Stage2Decision = DecisionApproved
			},
			expected: Stage3,
		},
		{
			name: "Approved request has no stage",
			mutate: func(p *PassRequest) {
				p.Stage1Decision = DecisionApproved
				p.Stage2Decision = DecisionApproved
				p.Stage3Decision = DecisionApproved
				p.FinalStatus = DecisionApproved
			},
			expected: StageNone,
		},
		{
			name: "Rejected request has no stage",
			mutate: func(p *PassRequest) {
				p.Stage1Decision = DecisionRejected
				p.FinalStatus = DecisionRejected
			},
			expected: StageNone,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPending()
			tc.mutate(&p)
			assert.Equal(t, tc.expected, p.CurrentStage())
		})
	}
}

func TestPassRequest_Presence(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	p := newPending()
	assert.Equal(t, PresenceNotYetOut, p.Presence())

	p.ExitAt = &now
	assert.Equal(t, PresenceOut, p.Presence())

	p.EntryAt = &later
	assert.Equal(t, PresenceReturned, p.Presence())
}

func TestPassRequest_IsOverdue(t *testing.T) {
	now := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	exit := now.Add(-8 * time.Hour)

	p := newPending()
	p.WindowTo = now
	assert.False(t, p.IsOverdue(now), "not out yet")

	p.ExitAt = &exit
	assert.False(t, p.IsOverdue(now.Add(-time.Minute)))
	assert.True(t, p.IsOverdue(now), "window end is exclusive")

	back := now.Add(time.Minute)
	p.EntryAt = &back
	assert.False(t, p.IsOverdue(now.Add(time.Hour)))
}

func TestCategory_Valid(t *testing.T) {
	assert.True(t, CategoryMedical.Valid())
	assert.True(t, CategoryHomeVisit.Valid())
	assert.False(t, Category("vacation").Valid())
	assert.False(t, Category("").Valid())
}
