package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"echo-service/internal/middleware"
	"echo-service/internal/models"
	"echo-service/internal/services"
	"echo-service/internal/telemetry"
)

// ConversationHandler manages conversations and their participants.
type ConversationHandler struct {
	auditor
	conversations services.ConversationService
}

func NewConversationHandler(conversations services.ConversationService, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{auditor: auditor{audit: audit}, conversations: conversations}
}

type createConversationRequest struct {
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	Name           *string     `json:"name"`
	IsGroup        bool        `json:"is_group"`
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req createConversationRequest
	if !bindJSON(c, &req) {
		h.emitAudit(c, "ERROR", "invalid request payload")
		return
	}
	details, err := h.conversations.Create(c.Request.Context(), middleware.UserID(c), services.CreateConversationInput{
		ParticipantIDs: req.ParticipantIDs,
		Name:           req.Name,
		IsGroup:        req.IsGroup,
	})
	if err != nil {
		h.emitAudit(c, "ERROR", "conversation create failed")
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Conversation created")
	c.JSON(http.StatusCreated, details)
}

// CreateDirect returns the 1:1 conversation with a contact, creating it on
// first use.
func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	contactID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	details, err := h.conversations.FindOrCreateDirect(c.Request.Context(), middleware.UserID(c), contactID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *ConversationHandler) List(c *gin.Context) {
	list, err := h.conversations.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	details, err := h.conversations.Get(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

type renameConversationRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req renameConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	conv, err := h.conversations.Rename(c.Request.Context(), id, middleware.UserID(c), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Conversation renamed")
	c.JSON(http.StatusOK, conv)
}

// Leave removes the caller. The conversation is deleted with its last
// participant.
func (h *ConversationHandler) Leave(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	deleted, err := h.conversations.Leave(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Conversation left")
	c.JSON(http.StatusOK, gin.H{"left": true, "conversation_deleted": deleted})
}

func (h *ConversationHandler) ListParticipants(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	participants, err := h.conversations.ListParticipants(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, participants)
}

type addParticipantsRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required"`
}

func (h *ConversationHandler) AddParticipants(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req addParticipantsRequest
	if !bindJSON(c, &req) {
		return
	}
	participants, err := h.conversations.AddParticipants(c.Request.Context(), id, middleware.UserID(c), req.UserIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "add participants failed")
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Participants added")
	c.JSON(http.StatusOK, participants)
}

func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	target, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	deleted, err := h.conversations.RemoveParticipant(c.Request.Context(), id, middleware.UserID(c), target)
	if err != nil {
		h.emitAudit(c, "ERROR", "remove participant failed")
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Participant removed")
	c.JSON(http.StatusOK, gin.H{"removed": true, "conversation_deleted": deleted})
}

type updateRoleRequest struct {
	Role models.ParticipantRole `json:"role" binding:"required"`
}

func (h *ConversationHandler) UpdateParticipantRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	target, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	var req updateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	participant, err := h.conversations.UpdateParticipantRole(c.Request.Context(), id, middleware.UserID(c), target, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	h.emitAudit(c, "INFO", "Participant role changed")
	c.JSON(http.StatusOK, participant)
}
