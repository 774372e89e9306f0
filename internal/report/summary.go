// Package report computes approval analytics for the approver dashboards.
package report

import (
	"context"
	"math"
	"sort"
	"time"

	"outpass-backend/internal/model"
	"outpass-backend/internal/store"
)

const (
	topReasons = 5
	trendDays  = 7
)

// ReasonCount is the number of requests filed under one category.
type ReasonCount struct {
	Reason model.Category `json:"reason"`
	Count  int            `json:"count"`
}

// DayCount is the number of requests submitted on one local calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Summary is the analytics view of a set of pass requests.
type Summary struct {
	Unit         string        `json:"unit,omitempty"`
	Total        int           `json:"total"`
	Pending      int           `json:"pending"`
	Approved     int           `json:"approved"`
	Rejected     int           `json:"rejected"`
	ApprovalRate int           `json:"approvalRate"` // percent of all requests, rounded
	TopReasons   []ReasonCount `json:"topReasons"`
	Daily        []DayCount    `json:"daily"`
}

type Service struct {
	store store.Store
	loc   *time.Location
	now   func() time.Time
}

func NewService(s store.Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: s, loc: loc, now: time.Now}
}

// Summary aggregates every request, or only those of unit when it is set.
func (s *Service) Summary(ctx context.Context, unit string) (Summary, error) {
	passes, err := s.store.ListPasses(ctx, store.PassFilter{Unit: unit})
	if err != nil {
		return Summary{}, err
	}
	return summarize(passes, unit, s.now().In(s.loc)), nil
}

func summarize(passes []model.PassRequest, unit string, now time.Time) Summary {
	sum := Summary{Unit: unit, Total: len(passes)}
	loc := now.Location()

	byReason := make(map[model.Category]int)
	days := make([]DayCount, trendDays)
	index := make(map[string]int, trendDays)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	for i := 0; i < trendDays; i++ {
		d := today.AddDate(0, 0, i-(trendDays-1)).Format("2006-01-02")
		days[i] = DayCount{Date: d}
		index[d] = i
	}

	for _, p := range passes {
		switch p.FinalStatus {
		case model.DecisionApproved:
			sum.Approved++
		case model.DecisionRejected:
			sum.Rejected++
		default:
			sum.Pending++
		}

		reason := p.Category
		if reason == "" {
			reason = model.CategoryOther
		}
		byReason[reason]++

		if i, ok := index[p.CreatedAt.In(loc).Format("2006-01-02")]; ok {
			days[i].Count++
		}
	}

	if sum.Total > 0 {
		sum.ApprovalRate = int(math.Round(float64(sum.Approved) / float64(sum.Total) * 100))
	}

	sum.TopReasons = make([]ReasonCount, 0, len(byReason))
	for r, n := range byReason {
		sum.TopReasons = append(sum.TopReasons, ReasonCount{Reason: r, Count: n})
	}
	sort.Slice(sum.TopReasons, func(i, j int) bool {
		a, b := sum.TopReasons[i], sum.TopReasons[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Reason < b.Reason
	})
	if len(sum.TopReasons) > topReasons {
		sum.TopReasons = sum.TopReasons[:topReasons]
	}
	sum.Daily = days
	return sum
}
