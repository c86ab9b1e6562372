package session

import "errors"

var (
	// ErrSessionTooLarge is returned when the session data exceeds the configured MaxSessionBytes.
	ErrSessionTooLarge = errors.New("session data too large")

	// ErrInvalidSessionID is returned when the session ID format is invalid.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrSessionDeleted is returned when saving a session removed by Manager.Delete.
	ErrSessionDeleted = errors.New("session was deleted")

	// ErrPersistence wraps every failure of the storage backend.
	ErrPersistence = errors.New("session persistence failed")

	// ErrBadConfig is returned when a store or manager is misconfigured.
	ErrBadConfig = errors.New("bad session config")
)
