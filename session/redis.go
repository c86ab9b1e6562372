package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys when RedisConfig leaves Prefix empty.
const DefaultRedisPrefix = "session:"

// RedisStore implements the Store interface using Redis. Expiry is delegated
// to Redis key TTLs, so Cleanup has nothing to do.
type RedisStore struct {
	client          redis.UniversalClient
	owned           bool
	prefix          string
	ttl             time.Duration
	maxSessionBytes int
}

// RedisConfig holds configuration for the Redis store.
type RedisConfig struct {
	// Client is used when set; the store does not close it.
	Client redis.UniversalClient
	// URL is parsed with redis.ParseURL when Client is nil.
	URL    string
	Prefix string
	// TTL applies to sessions without an expiry. Zero keeps them forever.
	TTL             time.Duration
	MaxSessionBytes int
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: DefaultRedisPrefix, ttl: ttl}
}

// NewRedisStoreWithConfig creates a RedisStore with custom configuration.
func NewRedisStoreWithConfig(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}

	store := &RedisStore{
		client:          cfg.Client,
		prefix:          cfg.Prefix,
		ttl:             cfg.TTL,
		maxSessionBytes: cfg.MaxSessionBytes,
	}
	if store.client == nil {
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: redis store needs a client or a URL", ErrBadConfig)
		}
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid redis url: %w", ErrBadConfig, err)
		}
		store.client = redis.NewClient(opts)
		store.owned = true
	}
	return store, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Get retrieves a session from Redis.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	if s.maxSessionBytes > 0 && len(data) > s.maxSessionBytes {
		return nil, ErrSessionTooLarge
	}

	session, err := decodeEnvelope(id, data)
	if err != nil {
		return nil, err
	}
	if expired(session.ExpiresAt, time.Now()) {
		return nil, nil
	}
	return session, nil
}

// Save stores a session in Redis.
func (s *RedisStore) Save(ctx context.Context, session *Session) error {
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
	expiration := s.ttl
	if !session.ExpiresAt.IsZero() {
		expiration = session.ExpiresAt.Sub(now)
	}

	if err := s.client.Set(ctx, s.key(session.ID), buf.Bytes(), expiration).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Delete removes a session from Redis.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Cleanup is a no-op for Redis as keys expire on their own.
func (s *RedisStore) Cleanup(ctx context.Context) error {
	return nil
}

// Close closes the client when the store created it.
func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
