package marketplace

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/dealmungchi/bestdeal/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
}

var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// failingCache fails every operation the way an unreachable memcached does
type failingCache struct{}

func (failingCache) Get(string) ([]byte, error) { return nil, errUnreachable }
func (failingCache) Set(string, []byte, time.Duration) error { return errUnreachable }
func (failingCache) Delete(string) error { return errUnreachable }

var errUnreachable = stderrors.New("dial tcp 127.0.0.1:11211: connect: connection refused")

type mockCall struct {
	actorID string
	input   QuerySpec
}

// MockDelegate returns canned items or errors per actor
type MockDelegate struct {
	mu    sync.Mutex
	items map[string][]RawItem
	errs  map[string]error
	calls []mockCall
}

var _ Delegate = (*MockDelegate)(nil)

func NewMockDelegate() *MockDelegate {
	return &MockDelegate{
		items: make(map[string][]RawItem),
		errs:  make(map[string]error),
	}
}

func (m *MockDelegate) WithItems(actorID string, items ...RawItem) *MockDelegate {
	m.items[actorID] = items
	return m
}

func (m *MockDelegate) WithError(actorID string, err error) *MockDelegate {
	m.errs[actorID] = err
	return m
}

func (m *MockDelegate) Call(ctx context.Context, actorID string, input QuerySpec) ([]RawItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mockCall{actorID: actorID, input: input})
	if err := m.errs[actorID]; err != nil {
		return nil, err
	}
	return m.items[actorID], nil
}

func (m *MockDelegate) Calls() []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockCall(nil), m.calls...)
}

// panicAdapter wraps an adapter and panics on items flagged with "explode"
type panicAdapter struct {
	Adapter
}

func (a panicAdapter) Normalize(item RawItem) (*Product, error) {
	if _, ok := item["explode"]; ok {
		var m map[string]int
		m["boom"] = 1
	}
	return a.Adapter.Normalize(item)
}
