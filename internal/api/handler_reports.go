package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outpass-backend/internal/approval"
	"outpass-backend/internal/mw"
)

// ReportSummary handles GET /api/reports/summary. Unit-scoped approvers see
// their own unit; the warden sees every unit unless ?unit= narrows it.
func (h *Handler) ReportSummary(c *gin.Context) {
	actor, _ := mw.CurrentActor(c)
	binding, ok := approval.StageFor(actor.Role)
	if !ok {
		writeError(c, approval.ErrForbidden)
		return
	}
	unit := c.Query("unit")
	if binding.UnitScoped {
		if actor.Unit == "" {
			writeError(c, approval.ErrForbidden)
			return
		}
		unit = actor.Unit
	}

	sum, err := h.reports.Summary(c.Request.Context(), unit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
