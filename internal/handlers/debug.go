package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"echo-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, transports []string, enabled bool) {
	if !enabled {
		return
	}

	a := auditor{audit: emitter}
	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		a.emitAudit(c, "INFO", "audit test")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/realtime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"transports": transports})
	})
}
