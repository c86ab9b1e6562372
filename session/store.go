package session

import (
	"context"
)

// Store defines the interface for session persistence backends.
//
// Backends never validate or generate identifiers; Manager does that before
// calling them.
type Store interface {
	// Get retrieves a session by its ID. It returns nil and no error when
	// the session does not exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)
	// Save writes the session, replacing any previous record.
	Save(ctx context.Context, s *Session) error
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// Cleanup removes expired sessions from the store.
	Cleanup(ctx context.Context) error
	// Close closes the store.
	Close() error
}
