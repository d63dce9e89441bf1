package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/cors"

	"github.com/chatrelay/backend/internal/auth"
	"github.com/chatrelay/backend/internal/cache"
	"github.com/chatrelay/backend/internal/chat"
	"github.com/chatrelay/backend/internal/chatroom"
	"github.com/chatrelay/backend/internal/config"
	"github.com/chatrelay/backend/internal/conversation"
	"github.com/chatrelay/backend/internal/database"
	"github.com/chatrelay/backend/internal/generation"
	"github.com/chatrelay/backend/internal/llm"
	"github.com/chatrelay/backend/internal/quota"
	"github.com/chatrelay/backend/internal/router"
	"github.com/chatrelay/backend/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := database.Migrate(ctx, pool, logger); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}

	health := map[string]router.Pinger{"postgres": pool.Ping}

	// A nil chatroomCache runs listings straight from Postgres.
	var chatroomCache chatroom.Cache
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		slog.Warn("Redis unavailable, chatroom listing cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		c := cache.New(redisClient)
		chatroomCache = c
		health["redis"] = c.Ping
		slog.Info("Connected to Redis")
	}

	// Repositories
	userRepo := auth.NewRepository(pool)
	roomRepo := chatroom.NewRepository(pool)
	messageRepo := conversation.NewRepository(pool)
	quotaRepo := quota.NewRepository(pool)

	// Services
	authSvc := auth.NewService(userRepo, cfg.Auth.JWTSecret)
	quotaSvc := quota.NewService(quotaRepo, quota.Limits{
		Basic: cfg.Quota.BasicDailyLimit,
		Pro:   cfg.Quota.ProDailyLimit,
	})
	roomSvc := chatroom.NewService(roomRepo, chatroomCache, cfg.Cache.ChatroomTTL, logger)

	model := llm.New(llm.Config{
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		SystemPrompt: cfg.LLM.SystemPrompt,
		MaxRetries:   cfg.LLM.MaxRetries,
	}, logger)

	// The inserter is bound to the River client once it exists.
	inserter := generation.NewInserter(cfg.Generation.MaxAttempts)
	chatSvc := chat.NewService(pool, quotaSvc, roomSvc, messageRepo, inserter, logger)

	riverClient, err := newQueueClient(pool, cfg, queueDeps{
		messages: messageRepo,
		rooms:    roomSvc,
		model:    model,
		inserter: inserter,
	}, logger)
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	inserter.Bind(riverClient)

	validator, err := validation.New()
	if err != nil {
		slog.Error("Failed to compile request schemas", "error", err)
		os.Exit(1)
	}

	mux := router.New(router.Handlers{
		Chatrooms: chatroom.NewHandler(roomSvc, messageRepo, logger),
		Chat:      chat.NewHandler(chatSvc, logger),
		Usage:     quota.NewHandler(quotaSvc, logger),
	}, authSvc, validator, health)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	if err := riverClient.Start(ctx); err != nil {
		slog.Error("Failed to start River client", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Server.Port,
		Handler: corsHandler,
	}
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			slog.Error("HTTP server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown", "error", err)
	}
	// In-flight reply jobs finish or are rescued on the next start.
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River client stop", "error", err)
	}
	slog.Info("Server stopped")
}
