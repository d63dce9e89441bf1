package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/chatroom"
	"github.com/chatrelay/backend/internal/middleware"
	"github.com/chatrelay/backend/internal/models"
)

type SendRequest struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status,omitempty"`
}

type SendResponse struct {
	Message     string          `json:"message"`
	UserMessage MessageResponse `json:"user_message"`
	AIMessage   MessageResponse `json:"ai_message"`
}

type limitResponse struct {
	Error        string `json:"error"`
	CurrentUsage int    `json:"current_usage"`
	Limit        int    `json:"limit"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// SendMessage handles POST /api/v1/chatrooms/{id}/messages.
// Auth -> ValidateBody (via middleware) -> Send -> 202. The reply arrives later
// in the chatroom's message list.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	chatroomID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"chatroom not found"}`, http.StatusNotFound)
		return
	}
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	res, err := h.svc.Send(r.Context(), user, chatroomID, req.Message)
	if err != nil {
		h.writeSendError(w, err, user, chatroomID)
		return
	}

	resp := SendResponse{
		Message:     "Message sent successfully",
		UserMessage: toResponse(res.UserMessage, ""),
		AIMessage:   toResponse(res.AIMessage, "processing"),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) writeSendError(w http.ResponseWriter, err error, user *models.User, chatroomID uuid.UUID) {
	var denied *AdmissionDeniedError
	switch {
	case errors.As(err, &denied):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(limitResponse{
			Error:        "Daily message limit exceeded",
			CurrentUsage: denied.CurrentUsage,
			Limit:        denied.Limit,
		})
	case errors.Is(err, ErrInvalidMessage):
		http.Error(w, `{"error":"`+ErrInvalidMessage.Error()+`"}`, http.StatusBadRequest)
	case errors.Is(err, chatroom.ErrNotFound):
		http.Error(w, `{"error":"chatroom not found"}`, http.StatusNotFound)
	default:
		h.log.Error("send message", "user_id", user.ID, "chatroom_id", chatroomID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func toResponse(m *models.Message, status string) MessageResponse {
	return MessageResponse{ID: m.ID.String(), Content: m.Content, Sender: m.Sender, CreatedAt: m.CreatedAt, Status: status}
}
