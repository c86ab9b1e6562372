package session

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"maps"
	"time"
)

// sessionEnvelope is the record written by the key-value backends
// (filesystem, Memcached, Redis), which have no columns for timestamps.
type sessionEnvelope struct {
	Values    map[string]any
	CreatedAt time.Time
	ExpiresAt time.Time
}

func init() {
	gob.Register(sessionEnvelope{})
	gob.Register(map[string]any{})
}

// encodeEnvelope serializes s into buf.
func encodeEnvelope(buf *bytes.Buffer, s *Session) error {
	s.mu.Lock()
	env := sessionEnvelope{
		Values:    maps.Clone(s.values),
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
	s.mu.Unlock()
	if err := gob.NewEncoder(buf).Encode(env); err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}
	return nil
}

// decodeEnvelope rebuilds the session stored under id from data.
func decodeEnvelope(id string, data []byte) (*Session, error) {
	var env sessionEnvelope

	reader := readerPool.Get().(*bytes.Reader)
	reader.Reset(data)
	defer func() {
		reader.Reset(nil)
		readerPool.Put(reader)
	}()

	if err := gob.NewDecoder(reader).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	return Restore(id, env.Values, env.CreatedAt, env.ExpiresAt), nil
}

// encodeValues serializes the bare values map, as stored by the SQL backends.
func encodeValues(buf *bytes.Buffer, values map[string]any) error {
	if err := gob.NewEncoder(buf).Encode(values); err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}
	return nil
}

func decodeValues(data []byte) (map[string]any, error) {
	var values map[string]any
	if len(data) == 0 {
		return make(map[string]any), nil
	}

	reader := readerPool.Get().(*bytes.Reader)
	reader.Reset(data)
	defer func() {
		reader.Reset(nil)
		readerPool.Put(reader)
	}()

	if err := gob.NewDecoder(reader).Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	if values == nil {
		values = make(map[string]any)
	}
	return values, nil
}

// expired reports whether a session with the given expiry is past it at now.
// A zero expiry never expires.
func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !expiresAt.After(now)
}
