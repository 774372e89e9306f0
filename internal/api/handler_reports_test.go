package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass-backend/internal/model"
	"outpass-backend/internal/report"
)

func TestReportSummary(t *testing.T) {
	env := newTestEnv(t)
	a := env.submitPass(student)
	env.submitPass(student2)
	env.submitPass(model.Actor{ID: "stu-9", Role: model.RoleStudent, Unit: "ECE"})
	env.approve(a.ID)

	w := env.do(http.MethodGet, "/api/reports/summary", &hod, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decodeJSON[report.Summary](t, w)
	assert.Equal(t, "CSE", sum.Unit)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Approved)
	assert.Equal(t, 50, sum.ApprovalRate)

	w = env.do(http.MethodGet, "/api/reports/summary", &warden, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decodeJSON[report.Summary](t, w).Total)

	// Cached per role and unit.
	env.submitPass(student)
	w = env.do(http.MethodGet, "/api/reports/summary", &hod, nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, 2, decodeJSON[report.Summary](t, w).Total)

	w = env.do(http.MethodGet, "/api/reports/summary", &student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
