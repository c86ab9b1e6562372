package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedStore implements the Store interface using Memcached.
type MemcachedStore struct {
	client          *memcache.Client
	ttl             time.Duration
	maxSessionBytes int
}

// MemcachedConfig holds configuration for the Memcached store.
type MemcachedConfig struct {
	Servers []string
	// TTL applies to sessions without an expiry. Zero keeps them until evicted.
	TTL             time.Duration
	MaxSessionBytes int
	Timeout         time.Duration // Timeout for Memcached operations. Defaults to 0 (no timeout) if not set.
}

// NewMemcachedStore creates a new MemcachedStore.
func NewMemcachedStore(ttl time.Duration, servers ...string) *MemcachedStore {
	return NewMemcachedStoreWithConfig(MemcachedConfig{
		Servers: servers,
		TTL:     ttl,
		// A bounded default keeps requests from hanging when Memcached is down.
		Timeout: 1 * time.Second,
	})
}

// NewMemcachedStoreWithConfig creates a new MemcachedStore with custom configuration.
func NewMemcachedStoreWithConfig(cfg MemcachedConfig) *MemcachedStore {
	client := memcache.New(cfg.Servers...)
	client.Timeout = cfg.Timeout

	return &MemcachedStore{
		client:          client,
		ttl:             cfg.TTL,
		maxSessionBytes: cfg.MaxSessionBytes,
	}
}

// Get retrieves a session from Memcached.
func (s *MemcachedStore) Get(ctx context.Context, id string) (*Session, error) {
	item, err := s.client.Get(id)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from memcached: %w", err)
	}

	if s.maxSessionBytes > 0 && len(item.Value) > s.maxSessionBytes {
		return nil, ErrSessionTooLarge
	}

	session, err := decodeEnvelope(id, item.Value)
	if err != nil {
		return nil, err
	}
	if expired(session.ExpiresAt, time.Now()) {
		return nil, nil
	}
	return session, nil
}

// Save stores a session in Memcached.
func (s *MemcachedStore) Save(ctx context.Context, session *Session) error {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer PutBuffer(buf)

	if err := encodeEnvelope(buf, session); err != nil {
		return err
	}

	if s.maxSessionBytes > 0 && buf.Len() > s.maxSessionBytes {
		return ErrSessionTooLarge
	}

	now := time.Now()
	if expired(session.ExpiresAt, now) {
		return nil
	}

	err := s.client.Set(&memcache.Item{
		Key:        session.ID,
		Value:      buf.Bytes(),
		Expiration: calculateMemcachedExpiration(now, session.ExpiresAt, s.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to save to memcached: %w", err)
	}
	return nil
}

// Delete removes a session from Memcached.
func (s *MemcachedStore) Delete(ctx context.Context, id string) error {
	err := s.client.Delete(id)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("failed to delete from memcached: %w", err)
	}
	return nil
}

// Cleanup is a no-op for Memcached as it handles expiration automatically.
func (s *MemcachedStore) Cleanup(ctx context.Context) error {
	return nil
}

// Close is a no-op for Memcached client.
func (s *MemcachedStore) Close() error {
	return nil
}

// calculateMemcachedExpiration calculates the expiration value for Memcached.
// Memcached treats values > 30 days (60*60*24*30 seconds) as absolute Unix timestamps.
// Values <= 30 days are treated as a delta from the current time. Zero means
// the item never expires.
func calculateMemcachedExpiration(now time.Time, expiresAt time.Time, ttl time.Duration) int32 {
	const maxDelta = 30 * 24 * 60 * 60 // 30 days in seconds

	var duration time.Duration
	if !expiresAt.IsZero() {
		duration = expiresAt.Sub(now)
	} else {
		duration = ttl
	}

	if expiresAt.IsZero() && ttl <= 0 {
		return 0
	}

	// Past 30 days a delta would be read as a timestamp in 1970.
	if duration > maxDelta*time.Second {
		if !expiresAt.IsZero() {
			return int32(expiresAt.Unix())
		}
		return int32(now.Add(ttl).Unix())
	}

	if duration < time.Second {
		// Zero would mean "never"; one second is the shortest real expiry.
		return 1
	}
	return int32(duration.Seconds())
}
