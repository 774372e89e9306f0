package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass-backend/internal/model"
	"outpass-backend/internal/store/memory"
)

func pass(status model.Decision, cat model.Category, created time.Time) model.PassRequest {
	return model.PassRequest{FinalStatus: status, Category: cat, CreatedAt: created}
}

func TestSummarize(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, loc)

	passes := []model.PassRequest{
		pass(model.DecisionApproved, model.CategoryMedical, now.Add(-time.Hour)),
		pass(model.DecisionApproved, model.CategoryMedical, now.AddDate(0, 0, -1)),
		pass(model.DecisionRejected, model.CategoryPersonal, now.AddDate(0, 0, -6)),
		pass(model.DecisionPending, model.CategoryHomeVisit, now.AddDate(0, 0, -7)),
		// 23:00 UTC on the 6th is already the 7th in IST.
		pass(model.DecisionPending, "", time.Date(2025, 3, 6, 23, 0, 0, 0, time.UTC)),
	}

	sum := summarize(passes, "CSE", now)

	assert.Equal(t, "CSE", sum.Unit)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 2, sum.Approved)
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, 2, sum.Pending)
	assert.Equal(t, 40, sum.ApprovalRate)

	require.Len(t, sum.TopReasons, 4)
	assert.Equal(t, ReasonCount{Reason: model.CategoryMedical, Count: 2}, sum.TopReasons[0])
	assert.Equal(t, model.CategoryHomeVisit, sum.TopReasons[1].Reason, "ties sort by name")

	require.Len(t, sum.Daily, 7)
	assert.Equal(t, "2025-03-01", sum.Daily[0].Date)
	assert.Equal(t, "2025-03-07", sum.Daily[6].Date)
	assert.Equal(t, 1, sum.Daily[0].Count)
	assert.Equal(t, 1, sum.Daily[5].Count)
	assert.Equal(t, 2, sum.Daily[6].Count)
}

func TestSummarize_TopFiveOnly(t *testing.T) {
	now := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	var passes []model.PassRequest
	for i, c := range []model.Category{"a", "b", "c", "d", "e", "f"} {
		for j := 0; j <= i; j++ {
			passes = append(passes, pass(model.DecisionPending, c, now))
		}
	}

	sum := summarize(passes, "", now)
	require.Len(t, sum.TopReasons, 5)
	assert.Equal(t, model.Category("f"), sum.TopReasons[0].Reason)
	assert.Equal(t, model.Category("b"), sum.TopReasons[4].Reason)
}

func TestSummary_Empty(t *testing.T) {
	svc := NewService(memory.New(), nil)

	sum, err := svc.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Total)
	assert.Equal(t, 0, sum.ApprovalRate)
	assert.Empty(t, sum.TopReasons)
	assert.Len(t, sum.Daily, 7)
}

func TestSummary_UnitScoped(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	for _, unit := range []string{"CSE", "CSE", "ECE"} {
		p := model.PassRequest{Unit: unit, Category: model.CategoryAcademic, FinalStatus: model.DecisionApproved}
		_, err := st.CreatePass(ctx, &p)
		require.NoError(t, err)
	}
	svc := NewService(st, time.UTC)

	sum, err := svc.Summary(ctx, "CSE")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 100, sum.ApprovalRate)
	assert.Equal(t, 2, sum.Daily[6].Count)
}
