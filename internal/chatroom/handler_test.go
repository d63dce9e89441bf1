package chatroom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/backend/internal/cache"
	"github.com/chatrelay/backend/internal/middleware"
	"github.com/chatrelay/backend/internal/models"
)

type stubMessages struct {
	msgs []*models.Message
}

func (s *stubMessages) ListByChatroom(context.Context, uuid.UUID) ([]*models.Message, error) {
	return s.msgs, nil
}

func newTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chatrooms", h.Create)
	mux.HandleFunc("GET /chatrooms", h.List)
	mux.HandleFunc("GET /chatrooms/{id}", h.Get)
	return mux
}

func do(mux http.Handler, user *models.User, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateListGet(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, cache.New(cache.NewMockClient()), time.Minute, nil)
	user := &models.User{ID: uuid.New()}
	msgs := &stubMessages{}
	mux := newTestMux(NewHandler(svc, msgs, nil))

	rec := do(mux, user, http.MethodPost, "/chatrooms", `{"title":"Travel"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Chatroom ChatroomResponse `json:"chatroom"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Travel", created.Chatroom.Title)

	rec = do(mux, user, http.MethodGet, "/chatrooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.False(t, list.Cached)
	require.Len(t, list.Chatrooms, 1)

	rec = do(mux, user, http.MethodGet, "/chatrooms", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.True(t, list.Cached)

	msgs.msgs = []*models.Message{
		{ID: uuid.New(), Content: "Hello", Sender: models.SenderUser, Status: models.MessageStatusCompleted},
		{ID: uuid.New(), Content: models.PlaceholderContent, Sender: models.SenderAI, Status: models.MessageStatusPending},
	}
	rec = do(mux, user, http.MethodGet, "/chatrooms/"+created.Chatroom.ID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail DetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, created.Chatroom.ID, detail.Chatroom.ID)
	require.Len(t, detail.Messages, 2)
	assert.Equal(t, models.MessageStatusPending, detail.Messages[1].Status)
}

func TestHandler_GetOtherUsersRoom(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	room, _ := store.Create(context.Background(), owner, "mine")
	mux := newTestMux(NewHandler(NewService(store, nil, time.Minute, nil), &stubMessages{}, nil))

	rec := do(mux, &models.User{ID: uuid.New()}, http.MethodGet, "/chatrooms/"+room.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(mux, &models.User{ID: owner}, http.MethodGet, "/chatrooms/garbage", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CreateRejectsBadTitle(t *testing.T) {
	mux := newTestMux(NewHandler(NewService(newMemStore(), nil, time.Minute, nil), &stubMessages{}, nil))
	rec := do(mux, &models.User{ID: uuid.New()}, http.MethodPost, "/chatrooms", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Unauthenticated(t *testing.T) {
	mux := newTestMux(NewHandler(NewService(newMemStore(), nil, time.Minute, nil), &stubMessages{}, nil))
	assert.Equal(t, http.StatusUnauthorized, do(mux, nil, http.MethodGet, "/chatrooms", "").Code)
}
