package chatroom

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/middleware"
	"github.com/chatrelay/backend/internal/models"
)

// MessageLister loads a chatroom's conversation for GET /chatrooms/{id}.
type MessageLister interface {
	ListByChatroom(ctx context.Context, chatroomID uuid.UUID) ([]*models.Message, error)
}

type CreateRequest struct {
	Title string `json:"title"`
}

type ChatroomResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListResponse struct {
	Chatrooms []models.ChatroomSummary `json:"chatrooms"`
	Cached    bool                     `json:"cached"`
}

type DetailResponse struct {
	Chatroom ChatroomResponse  `json:"chatroom"`
	Messages []*models.Message `json:"messages"`
}

type Handler struct {
	svc      Service
	messages MessageLister
	log      *slog.Logger
}

func NewHandler(svc Service, messages MessageLister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, messages: messages, log: log}
}

// Create handles POST /api/v1/chatrooms.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	room, err := h.svc.Create(r.Context(), user.ID, req.Title)
	if err != nil {
		if errors.Is(err, ErrInvalidTitle) {
			http.Error(w, `{"error":"`+ErrInvalidTitle.Error()+`"}`, http.StatusBadRequest)
			return
		}
		h.log.Error("create chatroom", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Chatroom created successfully",
		"chatroom": toResponse(room),
	})
}

// List handles GET /api/v1/chatrooms.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	rooms, cached, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		h.log.Error("list chatrooms", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Chatrooms: rooms, Cached: cached})
}

// Get handles GET /api/v1/chatrooms/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"chatroom not found"}`, http.StatusNotFound)
		return
	}
	room, err := h.svc.GetForUser(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, `{"error":"chatroom not found"}`, http.StatusNotFound)
			return
		}
		h.log.Error("get chatroom", "chatroom_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	msgs, err := h.messages.ListByChatroom(r.Context(), room.ID)
	if err != nil {
		h.log.Error("list messages", "chatroom_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	writeJSON(w, http.StatusOK, DetailResponse{Chatroom: toResponse(room), Messages: msgs})
}

func toResponse(c *models.Chatroom) ChatroomResponse {
	return ChatroomResponse{ID: c.ID.String(), Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
