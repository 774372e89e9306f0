package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"outpass-backend/internal/approval"
	"outpass-backend/internal/gate"
	"outpass-backend/internal/mw"
	"outpass-backend/internal/store"
)

// errBadRequest marks malformed request parameters.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type errorKind struct {
	status  int
	code    string
	message string
}

// classify maps a service error onto its HTTP status and message category.
// An empty message means the error text itself is shown.
func classify(err error) errorKind {
	switch {
	case errors.Is(err, approval.ErrValidation),
		errors.Is(err, gate.ErrInvalidInput),
		errors.Is(err, gate.ErrInvalidToken),
		errors.Is(err, errBadRequest):
		return errorKind{http.StatusBadRequest, "validation_error", ""}
	case errors.Is(err, approval.ErrStageMismatch):
		return errorKind{http.StatusForbidden, "stage_mismatch", "not authorized for this stage"}
	case errors.Is(err, approval.ErrForbidden):
		return errorKind{http.StatusForbidden, "forbidden", "forbidden"}
	case errors.Is(err, approval.ErrAlreadyTerminal):
		return errorKind{http.StatusConflict, "already_decided", "already decided"}
	case errors.Is(err, gate.ErrAlreadyExited), errors.Is(err, gate.ErrAlreadyEntered):
		return errorKind{http.StatusConflict, "already_scanned", "already scanned"}
	case errors.Is(err, gate.ErrNotApproved):
		return errorKind{http.StatusConflict, "not_approved", "pass is not approved"}
	case errors.Is(err, gate.ErrNotExited):
		return errorKind{http.StatusConflict, "not_exited", "no exit recorded for this pass"}
	case errors.Is(err, store.ErrConcurrentUpdate):
		return errorKind{http.StatusServiceUnavailable, "retry", "please retry"}
	case errors.Is(err, store.ErrNotFound):
		return errorKind{http.StatusNotFound, "not_found", "pass not found"}
	}
	return errorKind{http.StatusInternalServerError, "internal", "internal error"}
}

func writeError(c *gin.Context, err error) {
	k := classify(err)
	body := gin.H{"code": k.code}
	switch {
	case k.status == http.StatusInternalServerError:
		rid, _ := c.Get(mw.HeaderRequestID)
		log.Printf("request %v %s %s failed: %v", rid, c.Request.Method, c.FullPath(), err)
		body["error"] = k.message
	case k.message == "":
		body["error"] = err.Error()
	default:
		body["error"] = k.message
		body["detail"] = err.Error()
	}
	if k.status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(k.status, body)
}
