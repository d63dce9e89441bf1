package quota

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatrelay/backend/internal/middleware"
)

type Handler struct {
	svc Service
	log *slog.Logger
	now func() time.Time
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log, now: time.Now}
}

// GetUsage handles GET /api/v1/usage.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	usage, err := h.svc.Usage(r.Context(), user.ID, user.Tier, h.now())
	if err != nil {
		h.log.Error("load usage", "user_id", user.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(usage)
}
