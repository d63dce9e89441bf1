package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chatrelay/backend/internal/chat"
	"github.com/chatrelay/backend/internal/chatroom"
	"github.com/chatrelay/backend/internal/middleware"
	"github.com/chatrelay/backend/internal/quota"
	"github.com/chatrelay/backend/internal/validation"
)

// Pinger is a dependency whose reachability /health reports.
type Pinger func(ctx context.Context) error

type Handlers struct {
	Chatrooms *chatroom.Handler
	Chat      *chat.Handler
	Usage     *quota.Handler
}

// New returns an http.Handler that serves the API under /api/v1 and /health.
// Every /api/v1 route requires a bearer token.
func New(h Handlers, authn middleware.Authenticator, validator middleware.BodyValidator, health map[string]Pinger) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	auth := middleware.Authenticate(authn, nil)
	validate := func(schema string, next http.HandlerFunc) http.Handler {
		return middleware.ValidateBody(validator, schema)(next)
	}

	mux.Handle("POST "+base+"/chatrooms", auth(validate(validation.CreateChatroom, h.Chatrooms.Create)))
	mux.Handle("GET "+base+"/chatrooms", auth(http.HandlerFunc(h.Chatrooms.List)))
	mux.Handle("GET "+base+"/chatrooms/{id}", auth(http.HandlerFunc(h.Chatrooms.Get)))
	mux.Handle("POST "+base+"/chatrooms/{id}/messages", auth(validate(validation.SendMessage, h.Chat.SendMessage)))
	mux.Handle("GET "+base+"/usage", auth(http.HandlerFunc(h.Usage.GetUsage)))

	mux.HandleFunc("GET /health", healthHandler(health))
	return mux
}

func healthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "OK", http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, ping := range deps {
			if err := ping(ctx); err != nil {
				checks[name] = err.Error()
				status, code = "DEGRADED", http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"checks":    checks,
		})
	}
}
