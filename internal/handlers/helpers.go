package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"echo-service/internal/apperrors"
	"echo-service/internal/middleware"
	"echo-service/internal/telemetry"
)

// auditor emits audit events tagged with the current request and caller.
type auditor struct {
	audit *telemetry.AuditEmitter
}

func (a auditor) emitAudit(c *gin.Context, level, text string) {
	if a.audit == nil {
		return
	}
	var userID *string
	if id := middleware.UserID(c); id != uuid.Nil {
		s := id.String()
		userID = &s
	}
	a.audit.Emit(c.Request.Context(), level, text, middleware.RequestID(c), userID)
}

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, apperrors.InvalidOperation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperrors.InvalidOperation("invalid request payload"))
		return false
	}
	return true
}
