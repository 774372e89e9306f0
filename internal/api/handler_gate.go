package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outpass-backend/internal/model"
	"outpass-backend/internal/mw"
)

type scanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// nextAction tells the officer what a scan of this pass would record.
func nextAction(p model.PassRequest) string {
	if p.FinalStatus != model.DecisionApproved {
		return "none"
	}
	switch p.Presence() {
	case model.PresenceNotYetOut:
		return string(model.DirectionExit)
	case model.PresenceOut:
		return string(model.DirectionEntry)
	}
	return "none"
}

// Scan handles POST /api/gate/scan. It resolves the token to a pass without
// recording anything.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("%v", err))
		return
	}
	id, err := h.tokens.Scan(req.Payload)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.ledger.Lookup(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pass": h.view(p), "nextAction": nextAction(p)})
}

// RecordExit handles POST /api/gate/passes/:id/exit.
func (h *Handler) RecordExit(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	p, err := h.ledger.RecordExit(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}

// RecordEntry handles POST /api/gate/passes/:id/entry.
func (h *Handler) RecordEntry(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	p, err := h.ledger.RecordEntry(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}

// GateLog handles GET /api/gate/log?limit=N, most recent first.
func (h *Handler) GateLog(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		writeError(c, err)
		return
	}
	events, err := h.ledger.Log(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GateStats handles GET /api/gate/stats.
func (h *Handler) GateStats(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context(), h.loc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
