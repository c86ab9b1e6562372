package session

import (
	"maps"
	"sync"
	"time"
)

// Session represents a user session: a set of named values addressed by an
// unguessable identifier.
//
// Mutating methods mark the session as modified when they change it.
// Mutations of values held inside the session (a map or slice stored under
// some key) are not detected; call MarkModified after changing them in place.
//
// Session methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu       sync.Mutex
	values   map[string]any
	new      bool
	modified bool
	deleted  bool

	// encoded caches the serialized values computed by Manager.Save for its
	// size check, so SQL stores do not encode twice. Only valid during Save.
	encoded []byte
}

func newSession(id string, values map[string]any, isNew bool) *Session {
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{ID: id, values: values, new: isNew}
}

// Restore rebuilds a persisted session. Store implementations outside this
// package use it to return what they loaded.
func Restore(id string, values map[string]any, createdAt, expiresAt time.Time) *Session {
	s := newSession(id, values, false)
	s.CreatedAt = createdAt
	s.ExpiresAt = expiresAt
	return s
}

// IsNew reports whether the identifier was generated for this request rather
// than recovered from storage.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.new
}

// Modified reports whether the session changed since it was loaded.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// ShouldSave reports whether the session needs to be persisted. A deleted
// session never does, even if it was changed after the deletion.
func (s *Session) ShouldSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified && !s.deleted
}

// MarkModified flags the session for saving.
func (s *Session) MarkModified() {
	s.mu.Lock()
	s.modified = true
	s.mu.Unlock()
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores val under key.
func (s *Session) Set(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = val
	s.modified = true
}

// Delete removes key. It reports whether key was present; the session is only
// marked modified when it was.
func (s *Session) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	s.modified = true
	return true
}

// Pop removes key and returns its value.
func (s *Session) Pop(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if ok {
		delete(s.values, key)
		s.modified = true
	}
	return v, ok
}

// SetDefault stores val under key unless key is present, and returns the
// value now stored under key.
func (s *Session) SetDefault(key string, val any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	s.values[key] = val
	s.modified = true
	return val
}

// Update merges values into the session.
func (s *Session) Update(values map[string]any) {
	if len(values) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, values)
	s.modified = true
}

// Clear removes all values.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return
	}
	clear(s.values)
	s.modified = true
}

// Values returns a shallow copy of the session values.
func (s *Session) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

// Len returns the number of values.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// wipe drops the values of a deleted session. Manager.Save refuses a wiped
// session, so a pending save cannot bring it back.
func (s *Session) wipe() {
	s.mu.Lock()
	clear(s.values)
	s.modified = false
	s.deleted = true
	s.mu.Unlock()
}

// Deleted reports whether the session was deleted through Manager.Delete.
func (s *Session) Deleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}
