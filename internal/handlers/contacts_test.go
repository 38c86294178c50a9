package handlers

import (
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
)

func setupContactRouter(contacts *mocks.ContactServiceMock) *gin.Engine {
	h := NewContactHandler(contacts, nil)
	return newTestRouter(func(r gin.IRouter) {
		r.GET("/contacts", h.ListAccepted)
		r.GET("/contacts/pending", h.ListPending)
		r.GET("/contacts/sent", h.ListSent)
		r.POST("/contacts/request/:userId", h.SendRequest)
		r.POST("/contacts/accept/:contactId", h.Accept)
		r.DELETE("/contacts/:contactId", h.Reject)
	})
}

func TestSendContactRequest(t *testing.T) {
	contacts := new(mocks.ContactServiceMock)
	receiver := uuid.New()
	contacts.On("SendRequest", mock.Anything, testUser.ID, receiver).
		Return(models.Contact{ID: uuid.New(), InitiatorID: testUser.ID, ReceiverID: receiver, Status: models.ContactPending}, nil).Once()

	rec := doJSON(t, setupContactRouter(contacts), http.MethodPost, "/contacts/request/"+receiver.String(), nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	contacts.AssertExpectations(t)
}

func TestSendContactRequestDuplicate(t *testing.T) {
	contacts := new(mocks.ContactServiceMock)
	receiver := uuid.New()
	contacts.On("SendRequest", mock.Anything, testUser.ID, receiver).
		Return(models.Contact{}, apperrors.Conflict("contact request already pending")).Once()

	rec := doJSON(t, setupContactRouter(contacts), http.MethodPost, "/contacts/request/"+receiver.String(), nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperrors.KindConflict), errorCode(t, rec))
}

func TestAcceptByInitiatorRejected(t *testing.T) {
	contacts := new(mocks.ContactServiceMock)
	id := uuid.New()
	contacts.On("AcceptRequest", mock.Anything, testUser.ID, id).
		Return(models.Contact{}, apperrors.InvalidOperation("only the receiver can accept this request")).Once()

	rec := doJSON(t, setupContactRouter(contacts), http.MethodPost, "/contacts/accept/"+id.String(), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectContact(t *testing.T) {
	contacts := new(mocks.ContactServiceMock)
	id := uuid.New()
	contacts.On("RejectRequest", mock.Anything, testUser.ID, id).Return(nil).Once()

	rec := doJSON(t, setupContactRouter(contacts), http.MethodDelete, "/contacts/"+id.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListPendingContacts(t *testing.T) {
	contacts := new(mocks.ContactServiceMock)
	contacts.On("ListIncomingPending", mock.Anything, testUser.ID).Return([]models.ContactView{}, nil).Once()

	rec := doJSON(t, setupContactRouter(contacts), http.MethodGet, "/contacts/pending", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
