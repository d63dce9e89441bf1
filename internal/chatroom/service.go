package chatroom

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chatrelay/backend/internal/cache"
	"github.com/chatrelay/backend/internal/models"
)

const MaxTitleLength = 255

var ErrInvalidTitle = errors.New("title must be between 1 and 255 characters")

// Store is the chatroom persistence. *Repository implements it.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (*models.Chatroom, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.Chatroom, error)
	ListWithStats(ctx context.Context, userID uuid.UUID) ([]models.ChatroomSummary, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

// Cache is the listing cache. *cache.Cache implements it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, title string) (*models.Chatroom, error)
	// List reports cached=true when the result came from the listing cache.
	List(ctx context.Context, userID uuid.UUID) (rooms []models.ChatroomSummary, cached bool, err error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.Chatroom, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

type service struct {
	store Store
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

var _ Store = (*Repository)(nil)
var _ Cache = (*cache.Cache)(nil)

// NewService wires the store and listing cache. A nil cache disables caching.
func NewService(store Store, c Cache, ttl time.Duration, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, cache: c, ttl: ttl, log: log}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, title string) (*models.Chatroom, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, ErrInvalidTitle
	}
	room, err := s.store.Create(ctx, userID, title)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, cache.ChatroomsKey(userID)); err != nil {
			s.log.Warn("invalidate chatroom listing", "user_id", userID, "error", err)
		}
	}
	return room, nil
}

// List serves from the cache when possible. Cache failures fall back to the
// store; a stale listing of up to ttl is accepted after message completion.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.ChatroomSummary, bool, error) {
	key := cache.ChatroomsKey(userID)
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("read chatroom listing cache", "user_id", userID, "error", err)
		case ok:
			var rooms []models.ChatroomSummary
			if err := json.Unmarshal(raw, &rooms); err == nil {
				return rooms, true, nil
			}
			s.log.Warn("discarding malformed chatroom listing cache entry", "user_id", userID)
		}
	}

	rooms, err := s.store.ListWithStats(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		raw, err := json.Marshal(rooms)
		if err == nil {
			err = s.cache.SetWithTTL(ctx, key, raw, s.ttl)
		}
		if err != nil {
			s.log.Warn("write chatroom listing cache", "user_id", userID, "error", err)
		}
	}
	return rooms, false, nil
}

func (s *service) GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.Chatroom, error) {
	return s.store.GetForUser(ctx, userID, id)
}

func (s *service) Touch(ctx context.Context, id uuid.UUID) error {
	return s.store.Touch(ctx, id)
}
