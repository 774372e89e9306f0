package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"outpass-backend/internal/approval"
	"outpass-backend/internal/model"
	"outpass-backend/internal/mw"
	"outpass-backend/internal/parse"
)

type submitRequest struct {
	Category string `json:"category" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
	From     string `json:"from" binding:"required"`
	To       string `json:"to" binding:"required"`
}

// SubmitPass handles POST /api/passes.
func (h *Handler) SubmitPass(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", approval.ErrValidation, err))
		return
	}
	category, err := parse.ParseCategory(req.Category)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", approval.ErrValidation, err))
		return
	}
	from, err := parse.ParseWindowTime(req.From, h.loc)
	if err != nil {
		writeError(c, fmt.Errorf("%w: from: %v", approval.ErrValidation, err))
		return
	}
	to, err := parse.ParseWindowTime(req.To, h.loc)
	if err != nil {
		writeError(c, fmt.Errorf("%w: to: %v", approval.ErrValidation, err))
		return
	}

	p, err := h.machine.Submit(c.Request.Context(), approval.SubmitInput{
		RequesterID: actor.ID,
		Unit:        actor.Unit,
		Category:    category,
		Reason:      req.Reason,
		From:        from,
		To:          to,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(p))
}

// queryLimit reads ?limit=, returning 0 when it is absent.
func queryLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("invalid limit %q", raw)
	}
	return n, nil
}

// ListMine handles GET /api/passes/mine.
func (h *Handler) ListMine(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	limit, err := queryLimit(c)
	if err != nil {
		writeError(c, err)
		return
	}
	passes, err := h.machine.ListMine(c.Request.Context(), actor.ID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.views(passes))
}

// ActivePass handles GET /api/passes/active.
func (h *Handler) ActivePass(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	p, err := h.machine.ActivePass(c.Request.Context(), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}

// ListPending handles GET /api/passes/pending. Unit-agnostic approvers may
// narrow the queue with ?unit=.
func (h *Handler) ListPending(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	ctx := c.Request.Context()

	var (
		passes []model.PassRequest
		err    error
	)
	binding, ok := approval.StageFor(actor.Role)
	if unit := c.Query("unit"); ok && !binding.UnitScoped && unit != "" {
		passes, err = h.machine.ListPending(ctx, unit, binding.Stage)
	} else {
		passes, err = h.machine.PendingFor(ctx, actor)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.views(passes))
}

// History handles GET /api/passes/history.
func (h *Handler) History(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	limit, err := queryLimit(c)
	if err != nil {
		writeError(c, err)
		return
	}
	passes, err := h.machine.History(c.Request.Context(), actor, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.views(passes))
}

// visiblePass loads a pass the actor is allowed to see.
func (h *Handler) visiblePass(c *gin.Context) (model.PassRequest, bool) {
	actor, _ := mw.CurrentActor(c)
	p, err := h.machine.PassFor(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return model.PassRequest{}, false
	}
	return p, true
}

// GetPass handles GET /api/passes/:id.
func (h *Handler) GetPass(c *gin.Context) {
	p, ok := h.visiblePass(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}

type decideRequest struct {
	Decision model.Decision `json:"decision" binding:"required"`
	Remark   string         `json:"remark"`
}

// Decide handles POST /api/passes/:id/decision.
func (h *Handler) Decide(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)

	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", approval.ErrValidation, err))
		return
	}
	p, err := h.machine.Decide(c.Request.Context(), c.Param("id"), actor, req.Decision, req.Remark)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(p))
}

// PassToken handles GET /api/passes/:id/token. Only the holder gets a token.
func (h *Handler) PassToken(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	p, ok := h.visiblePass(c)
	if !ok {
		return
	}
	if p.RequesterID != actor.ID {
		writeError(c, fmt.Errorf("%w: token requested by %s for pass %s", approval.ErrForbidden, actor.ID, p.ID))
		return
	}
	token, expires, err := h.tokens.Issue(p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires})
}

// PassEvents handles GET /api/passes/:id/events.
func (h *Handler) PassEvents(c *gin.Context) {
	p, ok := h.visiblePass(c)
	if !ok {
		return
	}
	events, err := h.ledger.Events(c.Request.Context(), p.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
