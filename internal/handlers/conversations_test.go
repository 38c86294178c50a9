package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"echo-service/internal/apperrors"
	"echo-service/internal/mocks"
	"echo-service/internal/models"
	"echo-service/internal/services"
	"echo-service/internal/telemetry"
)

func setupConversationRouter(convs *mocks.ConversationServiceMock, audit *telemetry.AuditEmitter) *gin.Engine {
	h := NewConversationHandler(convs, audit)
	return newTestRouter(func(r gin.IRouter) {
		r.POST("/conversations", h.Create)
		r.GET("/conversations", h.List)
		r.POST("/conversations/direct/:userId", h.CreateDirect)
		r.GET("/conversations/:id", h.Get)
		r.PATCH("/conversations/:id", h.Rename)
		r.DELETE("/conversations/:id", h.Leave)
		r.GET("/conversations/:id/participants", h.ListParticipants)
		r.POST("/conversations/:id/participants", h.AddParticipants)
		r.DELETE("/conversations/:id/participants/:userId", h.RemoveParticipant)
		r.PATCH("/conversations/:id/participants/:userId/role", h.UpdateParticipantRole)
	})
}

func TestCreateConversationEmitsAudit(t *testing.T) {
	convs := new(mocks.ConversationServiceMock)
	publisher := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(publisher, "audit.echo", "echo", "test", nil)
	router := setupConversationRouter(convs, audit)

	other := uuid.New()
	name := "team"
	input := services.CreateConversationInput{ParticipantIDs: []uuid.UUID{other}, Name: &name, IsGroup: true}
	convs.On("Create", mock.Anything, testUser.ID, input).
		Return(models.ConversationDetails{Conversation: models.Conversation{ID: uuid.New(), IsGroup: true}}, nil).Once()
	publisher.On("Publish", mock.Anything, "audit.echo", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Text == "Conversation created" && env.UserID != nil && *env.UserID == testUser.ID.String()
	})).Return(nil).Once()

	rec := doJSON(t, router, http.MethodPost, "/conversations", map[string]any{
		"participant_ids": []string{other.String()},
		"name":            name,
		"is_group":        true,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	convs.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestCreateConversationInvalidPayload(t *testing.T) {
	rec := doJSON(t, setupConversationRouter(new(mocks.ConversationServiceMock), nil), http.MethodPost, "/conversations", `{"participant_ids":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateConversationRequiresContacts(t *testing.T) {
	convs := new(mocks.ConversationServiceMock)
	other := uuid.New()
	convs.On("Create", mock.Anything, testUser.ID, mock.Anything).
		Return(models.ConversationDetails{}, apperrors.Forbidden("all participants must be accepted contacts")).Once()

	rec := doJSON(t, setupConversationRouter(convs, nil), http.MethodPost, "/conversations", map[string]any{
		"participant_ids": []string{other.String()},
	})

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperrors.KindForbidden), errorCode(t, rec))
}

func TestCreateDirectReturnsExisting(t *testing.T) {
	convs := new(mocks.ConversationServiceMock)
	other := uuid.New()
	existing := models.ConversationDetails{Conversation: models.Conversation{ID: uuid.New()}}
	convs.On("FindOrCreateDirect", mock.Anything, testUser.ID, other).Return(existing, nil).Once()

	rec := doJSON(t, setupConversationRouter(convs, nil), http.MethodPost, "/conversations/direct/"+other.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), existing.ID.String())
}

func TestGetConversationForbidden(t *testing.T) {
	convs := new(mocks.ConversationServiceMock)
	id := uuid.New()
	convs.On("Get", mock.Anything, id, testUser.ID).
		Return(models.ConversationDetails{}, apperrors.Forbidden("not a participant of this conversation")).Once()

	rec := doJSON(t, setupConversationRouter(convs, nil), http.MethodGet, "/conversations/"+id.String(), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLeaveReportsDeletion(t *testing.T) {
	convs := new(mocks.ConversationServiceMock)
	id := uuid.New()
	convs.On("Leave", mock.Anything, id, testUser.ID).Return(true, nil).Once()

	rec := doJSON(t, setupConversationRouter(convs, nil), http.MethodDelete, "/conversations/"+id.String(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["conversation_deleted"])
}

func TestRemoveParticipantRequiresAdmin(t *testing.T) {
	convs := new(mocks.ConversationServiceMock)
	id, target := uuid.New(), uuid.New()
	convs.On("RemoveParticipant", mock.Anything, id, testUser.ID, target).
		Return(false, apperrors.Forbidden("only admins can manage participants")).Once()

	rec := doJSON(t, setupConversationRouter(convs, nil), http.MethodDelete,
		"/conversations/"+id.String()+"/participants/"+target.String(), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateRolePassesRole(t *testing.T) {
	convs := new(mocks.ConversationServiceMock)
	id, target := uuid.New(), uuid.New()
	convs.On("UpdateParticipantRole", mock.Anything, id, testUser.ID, target, models.ParticipantRole("ADMIN")).
		Return(models.Participant{UserID: target, Role: "ADMIN"}, nil).Once()

	rec := doJSON(t, setupConversationRouter(convs, nil), http.MethodPatch,
		"/conversations/"+id.String()+"/participants/"+target.String()+"/role", map[string]string{"role": "ADMIN"})

	require.Equal(t, http.StatusOK, rec.Code)
	convs.AssertExpectations(t)
}

func TestAddParticipantsRequiresBody(t *testing.T) {
	rec := doJSON(t, setupConversationRouter(new(mocks.ConversationServiceMock), nil), http.MethodPost,
		"/conversations/"+uuid.NewString()+"/participants", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
