package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/backend/internal/chatroom"
	"github.com/chatrelay/backend/internal/middleware"
	"github.com/chatrelay/backend/internal/models"
)

type stubService struct {
	res *SendResult
	err error
}

func (s *stubService) Send(context.Context, *models.User, uuid.UUID, string) (*SendResult, error) {
	return s.res, s.err
}

func serve(t *testing.T, svc Service, user *models.User, roomID, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chatrooms/{id}/messages", NewHandler(svc, nil).SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/chatrooms/"+roomID+"/messages", strings.NewReader(body))
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSendMessage_Accepted(t *testing.T) {
	user := &models.User{ID: uuid.New()}
	um := &models.Message{ID: uuid.New(), Content: "Hello", Sender: models.SenderUser, Status: models.MessageStatusCompleted}
	ai := &models.Message{ID: uuid.New(), Content: models.PlaceholderContent, Sender: models.SenderAI, Status: models.MessageStatusPending}
	svc := &stubService{res: &SendResult{UserMessage: um, AIMessage: ai}}

	rec := serve(t, svc, user, uuid.NewString(), `{"message":"Hello"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, um.ID.String(), resp.UserMessage.ID)
	assert.Equal(t, "Hello", resp.UserMessage.Content)
	assert.Equal(t, ai.ID.String(), resp.AIMessage.ID)
	assert.Equal(t, "Thinking...", resp.AIMessage.Content)
	assert.Equal(t, "processing", resp.AIMessage.Status)
}

func TestSendMessage_LimitExceeded(t *testing.T) {
	svc := &stubService{err: &AdmissionDeniedError{CurrentUsage: 5, Limit: 5}}
	rec := serve(t, svc, &models.User{ID: uuid.New()}, uuid.NewString(), `{"message":"Hello"}`)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Daily message limit exceeded","current_usage":5,"limit":5}`, rec.Body.String())
}

func TestSendMessage_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid", ErrInvalidMessage, http.StatusBadRequest},
		{"not found", chatroom.ErrNotFound, http.StatusNotFound},
		{"persistence", errors.Join(ErrPersistence, errors.New("boom")), http.StatusInternalServerError},
		{"enqueue", errors.Join(ErrEnqueue, errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, &stubService{err: tc.err}, &models.User{ID: uuid.New()}, uuid.NewString(), `{"message":"x"}`)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestSendMessage_BadRequests(t *testing.T) {
	svc := &stubService{}
	user := &models.User{ID: uuid.New()}

	assert.Equal(t, http.StatusUnauthorized, serve(t, svc, nil, uuid.NewString(), `{"message":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, svc, user, "not-a-uuid", `{"message":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, svc, user, uuid.NewString(), `{"message":`).Code)
}
