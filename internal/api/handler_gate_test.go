package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpass-backend/internal/model"
	"outpass-backend/internal/store"
)

type scanBody struct {
	Pass       passBody `json:"pass"`
	NextAction string   `json:"nextAction"`
}

func TestGateFlow(t *testing.T) {
	env := newTestEnv(t)
	p := env.submitPass(student)
	env.approve(p.ID)

	w := env.do(http.MethodGet, "/api/passes/"+p.ID+"/token", &student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := decodeJSON[map[string]any](t, w)["token"].(string)

	w = env.do(http.MethodPost, "/api/gate/scan", &security, map[string]string{"payload": token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	scan := decodeJSON[scanBody](t, w)
	assert.Equal(t, p.ID, scan.Pass.ID)
	assert.Equal(t, "exit", scan.NextAction)

	w = env.do(http.MethodPost, "/api/gate/passes/"+p.ID+"/exit", &security, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PresenceOut, decodeJSON[passBody](t, w).Presence)

	w = env.do(http.MethodPost, "/api/gate/passes/"+p.ID+"/exit", &security, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeJSON[errorBody](t, w)
	assert.Equal(t, "already_scanned", body.Code)
	assert.Equal(t, "already scanned", body.Error)

	w = env.do(http.MethodPost, "/api/gate/scan", &security, map[string]string{"payload": `{"id":"` + p.ID + `"}`})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "entry", decodeJSON[scanBody](t, w).NextAction)

	w = env.do(http.MethodPost, "/api/gate/passes/"+p.ID+"/entry", &security, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PresenceReturned, decodeJSON[passBody](t, w).Presence)

	w = env.do(http.MethodPost, "/api/gate/passes/"+p.ID+"/entry", &security, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_scanned", decodeJSON[errorBody](t, w).Code)

	w = env.do(http.MethodGet, "/api/passes/"+p.ID+"/events", &student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeJSON[[]model.GateEvent](t, w)
	require.Len(t, events, 2)
	assert.Equal(t, model.DirectionExit, events[0].Direction)
	assert.Equal(t, "sec-1", events[0].OfficerID)

	w = env.do(http.MethodGet, "/api/gate/log?limit=1", &warden, nil)
	require.Equal(t, http.StatusOK, w.Code)
	log := decodeJSON[[]model.GateEvent](t, w)
	require.Len(t, log, 1)
	assert.Equal(t, model.DirectionEntry, log[0].Direction)

	w = env.do(http.MethodGet, "/api/gate/stats", &security, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.GateCounts{Exits: 1, Entries: 1, CurrentlyOut: 0}, decodeJSON[store.GateCounts](t, w))

	// The pass has been used; no new token.
	w = env.do(http.MethodGet, "/api/passes/"+p.ID+"/token", &student, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGate_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	p := env.submitPass(student)

	w := env.do(http.MethodPost, "/api/gate/passes/"+p.ID+"/exit", &security, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "not_approved", decodeJSON[errorBody](t, w).Code)

	w = env.do(http.MethodPost, "/api/gate/passes/"+p.ID+"/entry", &security, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "not_exited", decodeJSON[errorBody](t, w).Code)

	w = env.do(http.MethodPost, "/api/gate/passes/unknown/exit", &security, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/gate/passes/"+p.ID+"/exit", &student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "only security records crossings")

	assert.Empty(t, env.store.Events())
}

func TestScan_BadPayloads(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/gate/scan", &security, map[string]string{"payload": "garbage"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeJSON[errorBody](t, w).Code)

	w = env.do(http.MethodPost, "/api/gate/scan", &security, map[string]string{"payload": `{"id":"nope"}`})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/gate/scan", &security, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
