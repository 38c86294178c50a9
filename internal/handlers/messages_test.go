package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"echo-service/internal/apperrors"
	"echo-service/internal/mocks"
	"echo-service/internal/models"
)

func setupMessageRouter(messages *mocks.MessageServiceMock) *gin.Engine {
	h := NewMessageHandler(messages)
	return newTestRouter(func(r gin.IRouter) {
		r.POST("/conversations/:id/messages", h.Send)
		r.GET("/conversations/:id/messages", h.List)
		r.POST("/conversations/:id/messages/read", h.MarkRead)
		r.GET("/conversations/:id/messages/:messageId", h.Get)
		r.PATCH("/conversations/:id/messages/:messageId", h.Edit)
		r.DELETE("/conversations/:id/messages/:messageId", h.Delete)
	})
}

func TestSendMessageCreated(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	convID := uuid.New()
	messages.On("Send", mock.Anything, convID, testUser.ID, "hello").
		Return(models.Message{ID: uuid.New(), ConversationID: convID, Content: "hello"}, nil).Once()

	rec := doJSON(t, setupMessageRouter(messages), http.MethodPost, "/conversations/"+convID.String()+"/messages",
		map[string]string{"content": "hello"})

	require.Equal(t, http.StatusCreated, rec.Code)
	messages.AssertExpectations(t)
}

func TestSendMessageMissingContent(t *testing.T) {
	rec := doJSON(t, setupMessageRouter(new(mocks.MessageServiceMock)), http.MethodPost,
		"/conversations/"+uuid.NewString()+"/messages", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageNonParticipant(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	convID := uuid.New()
	messages.On("Send", mock.Anything, convID, testUser.ID, "hi").
		Return(models.Message{}, apperrors.Forbidden("not a participant of this conversation")).Once()

	rec := doJSON(t, setupMessageRouter(messages), http.MethodPost, "/conversations/"+convID.String()+"/messages",
		map[string]string{"content": "hi"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEditMessageNotSender(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	convID, msgID := uuid.New(), uuid.New()
	messages.On("Edit", mock.Anything, convID, msgID, testUser.ID, "changed").
		Return(models.Message{}, apperrors.Forbidden("only the sender can edit this message")).Once()

	rec := doJSON(t, setupMessageRouter(messages), http.MethodPatch,
		"/conversations/"+convID.String()+"/messages/"+msgID.String(), map[string]string{"content": "changed"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteMessageNoContent(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	convID, msgID := uuid.New(), uuid.New()
	messages.On("Delete", mock.Anything, convID, msgID, testUser.ID).Return(nil).Once()

	rec := doJSON(t, setupMessageRouter(messages), http.MethodDelete,
		"/conversations/"+convID.String()+"/messages/"+msgID.String(), nil)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messages.AssertExpectations(t)
}

func TestGetMessageInvalidMessageID(t *testing.T) {
	rec := doJSON(t, setupMessageRouter(new(mocks.MessageServiceMock)), http.MethodGet,
		"/conversations/"+uuid.NewString()+"/messages/xyz", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkRead(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	convID := uuid.New()
	messages.On("MarkRead", mock.Anything, convID, testUser.ID).Return(nil).Once()

	rec := doJSON(t, setupMessageRouter(messages), http.MethodPost, "/conversations/"+convID.String()+"/messages/read", nil)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messages.AssertExpectations(t)
}
