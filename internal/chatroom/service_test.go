package chatroom

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/backend/internal/cache"
	"github.com/chatrelay/backend/internal/models"
)

// memStore is an in-memory Store that counts listing queries.
type memStore struct {
	mu        sync.Mutex
	rooms     map[uuid.UUID]*models.Chatroom
	messages  map[uuid.UUID][]time.Time
	listCalls int
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{rooms: make(map[uuid.UUID]*models.Chatroom), messages: make(map[uuid.UUID][]time.Time)}
}

func (m *memStore) addMessage(room uuid.UUID, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[room] = append(m.messages[room], at)
}

func (m *memStore) Create(_ context.Context, userID uuid.UUID, title string) (*models.Chatroom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	c := &models.Chatroom{ID: uuid.New(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	m.rooms[c.ID] = c
	return c, nil
}

func (m *memStore) GetForUser(_ context.Context, userID, id uuid.UUID) (*models.Chatroom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rooms[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListWithStats(_ context.Context, userID uuid.UUID) ([]models.ChatroomSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.ChatroomSummary{}
	for _, c := range m.rooms {
		if c.UserID == userID {
			sum := models.ChatroomSummary{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
			if msgs := m.messages[c.ID]; len(msgs) > 0 {
				last := msgs[len(msgs)-1]
				sum.MessageCount, sum.LastMessageAt = len(msgs), &last
			}
			out = append(out, sum)
		}
	}
	return out, nil
}

func (m *memStore) Touch(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rooms[id]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func TestList_CachedOnSecondCallAndInvalidatedByCreate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	redis := cache.NewMockClient()
	svc := NewService(store, cache.New(redis), 5*time.Minute, nil)
	user := uuid.New()
	key := cache.ChatroomsKey(user)

	room, err := svc.Create(ctx, user, "first")
	require.NoError(t, err)
	store.addMessage(room.ID, time.Now().UTC())
	store.addMessage(room.ID, time.Now().UTC().Add(time.Second))

	first, cached, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, first, 1)
	assert.Equal(t, 2, first[0].MessageCount)
	require.NotNil(t, first[0].LastMessageAt)
	assert.True(t, redis.Has(key))

	second, cached, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.True(t, cached)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, 1, store.listCalls)

	_, err = svc.Create(ctx, user, "second")
	require.NoError(t, err)
	assert.False(t, redis.Has(key))

	third, cached, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, store.listCalls)
}

func TestList_CacheIsPerUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), cache.New(cache.NewMockClient()), time.Minute, nil)
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, alice, "alice's room")
	require.NoError(t, err)
	_, _, err = svc.List(ctx, alice)
	require.NoError(t, err)

	rooms, cached, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Empty(t, rooms)
}

func TestList_CacheFailureFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	mock := cache.NewMockClient()
	mock.Err = errors.New("redis down")
	store := newMemStore()
	svc := NewService(store, cache.New(mock), time.Minute, nil)
	user := uuid.New()

	_, err := svc.Create(ctx, user, "room")
	require.NoError(t, err)

	rooms, cached, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, rooms, 1)
}

func TestList_StoreErrorSurfaces(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("db down")
	svc := NewService(store, nil, time.Minute, nil)
	_, _, err := svc.List(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestCreate_ValidatesTitle(t *testing.T) {
	svc := NewService(newMemStore(), nil, time.Minute, nil)
	long := make([]rune, MaxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name  string
		title string
		ok    bool
	}{
		{"empty", "", false},
		{"blank", "   ", false},
		{"too long", string(long), false},
		{"max length", string(long[:MaxTitleLength]), true},
		{"normal", "Trip planning", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), uuid.New(), tc.title)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTitle)
			}
		})
	}
}
