package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockEntry struct {
	value     string
	expiresAt time.Time
}

// MockClient is an in-memory Client for tests. Entries honour their TTL
// against Now, which tests may replace.
type MockClient struct {
	mu   sync.Mutex
	data map[string]mockEntry
	Now  func() time.Time
	// Err, when set, is returned by every command.
	Err error
}

func NewMockClient() *MockClient {
	return &MockClient{data: make(map[string]mockEntry), Now: time.Now}
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	e, ok := m.data[key]
	if !ok || (!e.expiresAt.IsZero() && !m.Now().Before(e.expiresAt)) {
		delete(m.data, key)
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(e.value)
	return cmd
}

func (m *MockClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	var s string
	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}
	e := mockEntry{value: s}
	if expiration > 0 {
		e.expiresAt = m.Now().Add(expiration)
	}
	m.data[key] = e
	cmd.SetVal("OK")
	return cmd
}

func (m *MockClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *MockClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

// Has reports whether key is stored and unexpired.
func (m *MockClient) Has(key string) bool {
	return m.Get(context.Background(), key).Err() == nil
}
