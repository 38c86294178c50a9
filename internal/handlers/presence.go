package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"echo-service/internal/middleware"
	"echo-service/internal/services"
)

type PresenceHandler struct {
	presence services.PresenceService
}

func NewPresenceHandler(presence services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

func (h *PresenceHandler) Online(c *gin.Context) {
	status, err := h.presence.SetOnline(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *PresenceHandler) Offline(c *gin.Context) {
	status, err := h.presence.SetOffline(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Heartbeat refreshes last-seen without notifying contacts.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	if err := h.presence.Heartbeat(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PresenceHandler) Contacts(c *gin.Context) {
	statuses, err := h.presence.ListContactsStatus(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}
