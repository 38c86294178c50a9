package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"echo-service/internal/middleware"
	"echo-service/internal/services"
	"echo-service/internal/telemetry"
)

// ContactHandler manages contact requests.
type ContactHandler struct {
	auditor
	contacts services.ContactService
}

func NewContactHandler(contacts services.ContactService, audit *telemetry.AuditEmitter) *ContactHandler {
	return &ContactHandler{auditor: auditor{audit: audit}, contacts: contacts}
}

func (h *ContactHandler) ListAccepted(c *gin.Context) {
	views, err := h.contacts.ListAccepted(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ContactHandler) ListPending(c *gin.Context) {
	views, err := h.contacts.ListIncomingPending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ContactHandler) ListSent(c *gin.Context) {
	views, err := h.contacts.ListOutgoingPending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ContactHandler) SendRequest(c *gin.Context) {
	receiver, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	contact, err := h.contacts.SendRequest(c.Request.Context(), middleware.UserID(c), receiver)
	if err != nil {
		h.emitAudit(c, "ERROR", "contact request failed")
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Contact request sent")
	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) Accept(c *gin.Context) {
	contactID, ok := uuidParam(c, "contactId")
	if !ok {
		return
	}
	contact, err := h.contacts.AcceptRequest(c.Request.Context(), middleware.UserID(c), contactID)
	if err != nil {
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Contact request accepted")
	c.JSON(http.StatusOK, contact)
}

// Reject declines a pending request or removes an accepted contact.
func (h *ContactHandler) Reject(c *gin.Context) {
	contactID, ok := uuidParam(c, "contactId")
	if !ok {
		return
	}
	if err := h.contacts.RejectRequest(c.Request.Context(), middleware.UserID(c), contactID); err != nil {
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Contact removed")
	c.Status(http.StatusNoContent)
}
