package session

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Morditux/reqlocal/internal/logger"
)

// Manager generates and validates session identifiers and moves sessions in
// and out of a Store. Unknown or malformed identifiers are never an error:
// they yield a fresh session.
type Manager struct {
	store           Store
	ttl             time.Duration
	salt            string
	cleanup         time.Duration
	maxSessionBytes int
	log             *slog.Logger
	stopChan        chan struct{}
	closeOnce       sync.Once
}

type Config struct {
	Store Store
	// TTL bounds the life of a session from its last save. Zero means
	// sessions live until deleted.
	TTL time.Duration
	// Salt is mixed into every generated key.
	Salt string
	// CleanupInterval is how often Store.Cleanup runs. Defaults to 10 minutes;
	// a negative value disables the background worker.
	CleanupInterval time.Duration
	MaxSessionBytes int // Maximum size in bytes of the serialized session data. 0 means unlimited.
	Logger          *slog.Logger
}

func NewManager(cfg Config) *Manager {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}

	m := &Manager{
		store:           cfg.Store,
		ttl:             cfg.TTL,
		salt:            cfg.Salt,
		cleanup:         cfg.CleanupInterval,
		maxSessionBytes: cfg.MaxSessionBytes,
		log:             logger.Or(cfg.Logger).With(logger.Component("session")),
		stopChan:        make(chan struct{}),
	}

	if m.cleanup > 0 {
		go m.cleanupWorker()
	}

	return m
}

func (m *Manager) cleanupWorker() {
	ticker := time.NewTicker(m.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := m.store.Cleanup(ctx)
			cancel()
			if err != nil {
				m.log.Warn("expired session cleanup failed", logger.Error(err))
				continue
			}
			m.log.Debug("expired sessions cleaned up", logger.Duration(time.Since(start)))
		case <-m.stopChan:
			return
		}
	}
}

// Close stops the cleanup worker and closes the store.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.stopChan)
		err = m.store.Close()
	})
	return err
}

// GenerateKey returns a new session identifier mixing salt with the
// manager's own salt.
func (m *Manager) GenerateKey(salt string) (string, error) {
	return GenerateKey(m.salt + salt)
}

// IsValidKey reports whether key has the shape of a session identifier.
func (m *Manager) IsValidKey(key string) bool {
	return IsValidKey(key)
}

// New returns an empty session under a freshly generated identifier.
func (m *Manager) New() (*Session, error) {
	id, err := m.GenerateKey("")
	if err != nil {
		return nil, err
	}
	s := newSession(id, nil, true)
	s.CreatedAt = time.Now()
	if m.ttl > 0 {
		s.ExpiresAt = s.CreatedAt.Add(m.ttl)
	}
	return s, nil
}

// Get loads the session stored under sid. A malformed sid, a missing record
// or an expired one all yield New(). Only backend failures are returned as
// errors, wrapped in ErrPersistence.
func (m *Manager) Get(ctx context.Context, sid string) (*Session, error) {
	if !IsValidKey(sid) {
		return m.New()
	}

	session, err := m.store.Get(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if session == nil {
		return m.New()
	}

	// Some stores rely on lazy or external expiry; never hand out an
	// expired session.
	if expired(session.ExpiresAt, time.Now()) {
		return m.New()
	}

	return session, nil
}

// Save persists the session, renewing its expiry when a TTL is configured.
// A session removed by Delete is refused with ErrSessionDeleted.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	// Hold the session lock so concurrent Set/Delete calls cannot race the
	// encoding below; stores read s.values through s.encoded or Values.
	s.mu.Lock()
	if !IsValidKey(s.ID) {
		s.mu.Unlock()
		return ErrInvalidSessionID
	}
	if s.deleted {
		s.mu.Unlock()
		return ErrSessionDeleted
	}

	if m.ttl > 0 {
		s.ExpiresAt = time.Now().Add(m.ttl)
	}

	// Skip encoding empty sessions.
	if m.maxSessionBytes > 0 && len(s.values) > 0 {
		buf := bufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer PutBuffer(buf)

		if err := gob.NewEncoder(buf).Encode(s.values); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to encode session data: %w", err)
		}

		if buf.Len() > m.maxSessionBytes {
			s.mu.Unlock()
			return ErrSessionTooLarge
		}

		// The store consumes s.encoded synchronously, before the buffer
		// returns to the pool.
		s.encoded = buf.Bytes()
	}
	s.mu.Unlock()

	err := m.store.Save(ctx, s)

	s.mu.Lock()
	s.encoded = nil
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// SaveIfModified saves s only when it was modified and not deleted.
func (m *Manager) SaveIfModified(ctx context.Context, s *Session) error {
	if !s.ShouldSave() {
		return nil
	}
	return m.Save(ctx, s)
}

// Delete removes the persisted record of s and wipes its values from memory.
// A missing record is not an error.
func (m *Manager) Delete(ctx context.Context, s *Session) error {
	// Wipe values from memory even if the store deletion fails.
	defer s.wipe()

	if !IsValidKey(s.ID) {
		return nil
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Regenerate moves the session to a new identifier to prevent session
// fixation. The session is saved under the new identifier and the old record
// is deleted.
func (m *Manager) Regenerate(ctx context.Context, s *Session) error {
	oldID := s.ID
	newID, err := m.GenerateKey(oldID)
	if err != nil {
		return err
	}
	s.ID = newID
	s.MarkModified()

	if err := m.Save(ctx, s); err != nil {
		s.ID = oldID // Restore old ID on failure
		return err
	}

	if !IsValidKey(oldID) {
		return nil
	}
	if err := m.store.Delete(ctx, oldID); err != nil {
		// Fail closed: leaving the old ID valid would defeat the purpose.
		// Drop the new record too so neither identifier stays usable.
		_ = m.store.Delete(ctx, newID)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
