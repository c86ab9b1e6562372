package session

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface on an embedded, CGO-free SQLite
// database.
type SQLiteStore struct {
	db              *sql.DB
	mu              sync.Mutex // Serializes writes to avoid SQLITE_BUSY
	saveStmt        *sql.Stmt
	getStmt         *sql.Stmt
	deleteStmt      *sql.Stmt
	cleanupStmt     *sql.Stmt
	maxSessionBytes int
}

// SQLiteConfig holds configuration for the SQLite store.
type SQLiteConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MaxSessionBytes int
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{
		DSN:          dsn,
		MaxOpenConns: 16, // Allow concurrent readers (writers are serialized by mutex)
		MaxIdleConns: 16,
	})
}

func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	// PRAGMAs go into the DSN so they apply to every pooled connection.
	cfg.DSN = withPragma(cfg.DSN, "synchronous", "synchronous=NORMAL")
	cfg.DSN = withPragma(cfg.DSN, "busy_timeout", "busy_timeout=5000")

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// WAL is persistent for the database file, once is enough.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// expires_at is NULL for sessions without a TTL.
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		data BLOB,
		created_at DATETIME,
		expires_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_expires_at ON sessions(expires_at);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	store := &SQLiteStore{
		db:              db,
		maxSessionBytes: cfg.MaxSessionBytes,
	}

	store.saveStmt, err = db.Prepare(`
		INSERT INTO sessions (id, data, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			expires_at = excluded.expires_at
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare save statement: %w", err)
	}

	store.getStmt, err = db.Prepare("SELECT data, created_at, expires_at FROM sessions WHERE id = ? AND (expires_at IS NULL OR expires_at > ?)")
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to prepare get statement: %w", err)
	}

	store.deleteStmt, err = db.Prepare("DELETE FROM sessions WHERE id = ?")
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	store.cleanupStmt, err = db.Prepare("DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at < ?")
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return store, nil
}

func withPragma(dsn, name, pragma string) string {
	if strings.Contains(dsn, name) {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=%s", dsn, separator, pragma)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var data sql.RawBytes
	var createdAt time.Time
	var expiresAt sql.NullTime

	rows, err := s.getStmt.QueryContext(ctx, id, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate rows: %w", err)
		}
		return nil, nil // Not found or expired
	}

	if err := rows.Scan(&data, &createdAt, &expiresAt); err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if s.maxSessionBytes > 0 && len(data) > s.maxSessionBytes {
		return nil, ErrSessionTooLarge
	}

	// data is only valid until the next Scan/Close; decodeValues reads it
	// immediately. NULL data means an empty session.
	values, err := decodeValues(data)
	if err != nil {
		return nil, err
	}

	return Restore(id, values, createdAt, expiresAt.Time), nil
}

func (s *SQLiteStore) Save(ctx context.Context, session *Session) error {
	blob, release, err := sqlBlob(session)
	if err != nil {
		return err
	}
	defer release()

	if s.maxSessionBytes > 0 && len(blob) > s.maxSessionBytes {
		return ErrSessionTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.saveStmt.ExecContext(ctx, session.ID, blob, session.CreatedAt, nullTime(session.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.deleteStmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.cleanupStmt.ExecContext(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.saveStmt != nil {
		s.saveStmt.Close()
	}
	if s.getStmt != nil {
		s.getStmt.Close()
	}
	if s.deleteStmt != nil {
		s.deleteStmt.Close()
	}
	if s.cleanupStmt != nil {
		s.cleanupStmt.Close()
	}
	return s.db.Close()
}

// sqlBlob returns the serialized values of session for the SQL stores, nil
// for an empty session. It reuses the encoding cached by Manager.Save when
// present. release must be called once the blob is no longer used.
func sqlBlob(session *Session) ([]byte, func(), error) {
	session.mu.Lock()
	encoded := session.encoded
	n := len(session.values)
	session.mu.Unlock()

	if n == 0 {
		return nil, func() {}, nil
	}
	if encoded != nil {
		return encoded, func() {}, nil
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	if err := encodeValues(buf, session.Values()); err != nil {
		PutBuffer(buf)
		return nil, nil, err
	}
	return buf.Bytes(), func() { PutBuffer(buf) }, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
