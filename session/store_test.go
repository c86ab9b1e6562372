package session

import (
	"context"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// nopStore accepts everything and remembers nothing.
type nopStore struct{}

func (nopStore) Get(ctx context.Context, id string) (*Session, error) { return nil, nil }
func (nopStore) Save(ctx context.Context, s *Session) error           { return nil }
func (nopStore) Delete(ctx context.Context, id string) error          { return nil }
func (nopStore) Cleanup(ctx context.Context) error                    { return nil }
func (nopStore) Close() error                                         { return nil }

// mockStore records calls and returns what the test programs.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, id string) (*Session, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*Session)
	return s, args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, s *Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) Cleanup(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type memRecord struct {
	values    map[string]any
	createdAt time.Time
	expiresAt time.Time
}

// memStore keeps sessions in a map.
type memStore struct {
	mu      sync.Mutex
	records map[string]memRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]memRecord)}
}

func (m *memStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return Restore(id, maps.Clone(rec.values), rec.createdAt, rec.expiresAt), nil
}

func (m *memStore) Save(ctx context.Context, s *Session) error {
	values := s.Values()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[s.ID] = memRecord{values: values, createdAt: s.CreatedAt, expiresAt: s.ExpiresAt}
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *memStore) Cleanup(ctx context.Context) error { return nil }
func (m *memStore) Close() error                      { return nil }

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

func (m *memStore) value(id, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.records[id].values[key]
	return v, ok
}

func mustKey(tb testing.TB) string {
	tb.Helper()
	key, err := GenerateKey("")
	require.NoError(tb, err)
	return key
}
