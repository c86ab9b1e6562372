package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFilenameTemplate names session files when FilesystemConfig leaves
// FilenameTemplate empty.
const DefaultFilenameTemplate = "session_%s.sess"

// FilesystemStore implements the Store interface with one file per session.
//
// A save replaces the whole file: the record is written to a temporary file
// in the same directory and renamed over the previous one.
type FilesystemStore struct {
	dir             string
	template        string
	maxAge          time.Duration
	maxSessionBytes int
	mode            fs.FileMode
}

// FilesystemConfig holds configuration for the filesystem store.
type FilesystemConfig struct {
	// Dir holds the session files. Defaults to os.TempDir().
	Dir string
	// FilenameTemplate must contain exactly one %s, replaced by the session ID.
	FilenameTemplate string
	// MaxAge makes Cleanup remove files not written for that long. Zero disables it.
	MaxAge          time.Duration
	MaxSessionBytes int
	// FileMode defaults to 0600.
	FileMode fs.FileMode
}

// NewFilesystemStore creates a FilesystemStore in dir with the default template.
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	return NewFilesystemStoreWithConfig(FilesystemConfig{Dir: dir})
}

// NewFilesystemStoreWithConfig creates a FilesystemStore with custom configuration.
func NewFilesystemStoreWithConfig(cfg FilesystemConfig) (*FilesystemStore, error) {
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if cfg.FilenameTemplate == "" {
		cfg.FilenameTemplate = DefaultFilenameTemplate
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o600
	}

	if strings.Count(cfg.FilenameTemplate, "%") != 1 || !strings.Contains(cfg.FilenameTemplate, "%s") {
		return nil, fmt.Errorf("%w: filename template %q must contain exactly one %%s", ErrBadConfig, cfg.FilenameTemplate)
	}
	if strings.ContainsRune(cfg.FilenameTemplate, filepath.Separator) {
		return nil, fmt.Errorf("%w: filename template %q must not contain a path separator", ErrBadConfig, cfg.FilenameTemplate)
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	return &FilesystemStore{
		dir:             cfg.Dir,
		template:        cfg.FilenameTemplate,
		maxAge:          cfg.MaxAge,
		maxSessionBytes: cfg.MaxSessionBytes,
		mode:            cfg.FileMode,
	}, nil
}

// Filename returns the path of the file holding session id.
func (s *FilesystemStore) Filename(id string) string {
	return filepath.Join(s.dir, fmt.Sprintf(s.template, id))
}

// Get reads a session file. Malformed IDs are never turned into paths.
func (s *FilesystemStore) Get(ctx context.Context, id string) (*Session, error) {
	if !IsValidKey(id) {
		return nil, nil
	}

	data, err := os.ReadFile(s.Filename(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	defer clear(data)

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

// Save replaces the session file.
func (s *FilesystemStore) Save(ctx context.Context, session *Session) error {
	if !IsValidKey(session.ID) {
		return ErrInvalidSessionID
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer PutBuffer(buf)

	if err := encodeEnvelope(buf, session); err != nil {
		return err
	}
	if s.maxSessionBytes > 0 && buf.Len() > s.maxSessionBytes {
		return ErrSessionTooLarge
	}

	tmp, err := os.CreateTemp(s.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Chmod(s.mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmpName, s.Filename(session.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Delete removes the session file, if any.
func (s *FilesystemStore) Delete(ctx context.Context, id string) error {
	if !IsValidKey(id) {
		return nil
	}
	err := os.Remove(s.Filename(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Cleanup removes session files whose last write is older than MaxAge.
// It is a no-op when MaxAge is zero. Only names produced by Filename for a
// valid identifier are considered.
func (s *FilesystemStore) Cleanup(ctx context.Context) error {
	if s.maxAge <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to list session files: %w", err)
	}

	prefix, suffix, _ := strings.Cut(s.template, "%s")
	cutoff := time.Now().Add(-s.maxAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		id, ok := strings.CutPrefix(name, prefix)
		if !ok || !entry.Type().IsRegular() {
			continue
		}
		if id, ok = strings.CutSuffix(id, suffix); !ok || !IsValidKey(id) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to cleanup expired sessions: %w", err)
			}
		}
	}
	return nil
}

// Close is a no-op for the filesystem store.
func (s *FilesystemStore) Close() error {
	return nil
}
