package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"outpass-backend/internal/approval"
	"outpass-backend/internal/gate"
	"outpass-backend/internal/model"
	"outpass-backend/internal/report"
	"outpass-backend/internal/store"
)

// Deps are the services the handlers call into.
type Deps struct {
	Store    store.Store
	Machine  *approval.Machine
	Ledger   *gate.Ledger
	Tokens   *gate.TokenCodec
	Reports  *report.Service
	Webpush  *webpush.Options
	Location *time.Location
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	machine *approval.Machine
	ledger  *gate.Ledger
	tokens  *gate.TokenCodec
	reports *report.Service
	webpush *webpush.Options
	loc     *time.Location
	now     func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:   d.Store,
		machine: d.Machine,
		ledger:  d.Ledger,
		tokens:  d.Tokens,
		reports: d.Reports,
		webpush: d.Webpush,
		loc:     loc,
		now:     time.Now,
	}
}

// passView adds the derived fields clients need to a stored record.
type passView struct {
	model.PassRequest
	Presence     model.Presence `json:"presence"`
	CurrentStage model.Stage    `json:"currentStage"`
	Overdue      bool           `json:"overdue"`
}

func (h *Handler) view(p model.PassRequest) passView {
	return passView{
		PassRequest:  p,
		Presence:     p.Presence(),
		CurrentStage: p.CurrentStage(),
		Overdue:      p.IsOverdue(h.now()),
	}
}

func (h *Handler) views(ps []model.PassRequest) []passView {
	out := make([]passView, len(ps))
	for i, p := range ps {
		out[i] = h.view(p)
	}
	return out
}

// Healthz reports whether the store is reachable.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
