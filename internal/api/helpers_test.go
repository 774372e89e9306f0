package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"outpass-backend/config"
	"outpass-backend/internal/approval"
	"outpass-backend/internal/gate"
	"outpass-backend/internal/model"
	"outpass-backend/internal/mw"
	"outpass-backend/internal/report"
	"outpass-backend/internal/store"
	"outpass-backend/internal/store/memory"
)

var (
	student  = model.Actor{ID: "stu-1", Role: model.RoleStudent, Unit: "CSE"}
	student2 = model.Actor{ID: "stu-2", Role: model.RoleStudent, Unit: "CSE"}
	mentor   = model.Actor{ID: "mentor-1", Role: model.RoleMentor, Unit: "CSE"}
	hod      = model.Actor{ID: "hod-1", Role: model.RoleHOD, Unit: "CSE"}
	warden   = model.Actor{ID: "warden-1", Role: model.RoleWarden}
	security = model.Actor{ID: "sec-1", Role: model.RoleSecurity}
)

type testEnv struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore routes writes through wrap(memory store) when wrap is
// set.
func newTestEnvWithStore(t *testing.T, wrap func(store.Store) store.Store) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memory.New()
	var st store.Store = mem
	if wrap != nil {
		st = wrap(mem)
	}
	logger := log.New(io.Discard, "", 0)
	tokens, err := gate.NewTokenCodec(gate.TokenOptions{Secret: "test-secret", Grace: time.Hour, AcceptPlainJSON: true})
	require.NoError(t, err)

	h := NewHandler(Deps{
		Store:   st,
		Machine: approval.NewMachine(st, approval.Options{Logger: logger}),
		Ledger:  gate.NewLedger(st, gate.Options{Logger: logger}),
		Tokens:  tokens,
		Reports: report.NewService(st, time.UTC),
		Webpush: &webpush.Options{VAPIDPublicKey: "test-public-key"},
	})
	srv := config.Default().Server
	srv.RateLimitPerSec = 1000
	srv.RateLimitBurst = 1000

	return &testEnv{t: t, router: NewRouter(h, srv), store: mem}
}

func (e *testEnv) do(method, path string, actor *model.Actor, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, path, r)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(mw.HeaderActorID, actor.ID)
		req.Header.Set(mw.HeaderActorRole, string(actor.Role))
		req.Header.Set(mw.HeaderActorUnit, actor.Unit)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type passBody struct {
	ID           string         `json:"id"`
	FinalStatus  model.Decision `json:"finalStatus"`
	Presence     model.Presence `json:"presence"`
	CurrentStage model.Stage    `json:"currentStage"`
	Category     model.Category `json:"category"`
	Version      uint64         `json:"version"`
	RequesterID  string         `json:"requesterId"`
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func submitBody(from, to time.Time) map[string]string {
	return map[string]string{
		"category": "Medical",
		"reason":   "dentist",
		"from":     from.Format(time.RFC3339),
		"to":       to.Format(time.RFC3339),
	}
}

// submitPass creates a pass for student whose window starts in an hour.
func (e *testEnv) submitPass(actor model.Actor) passBody {
	e.t.Helper()
	now := time.Now()
	w := e.do(http.MethodPost, "/api/passes", &actor, submitBody(now.Add(time.Hour), now.Add(9*time.Hour)))
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeJSON[passBody](e.t, w)
}

func (e *testEnv) decide(id string, actor model.Actor, decision model.Decision) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do(http.MethodPost, "/api/passes/"+id+"/decision", &actor, map[string]string{"decision": string(decision)})
}

func (e *testEnv) approve(id string) {
	e.t.Helper()
	for _, a := range []model.Actor{mentor, hod, warden} {
		w := e.decide(id, a, model.DecisionApproved)
		require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	}
}
