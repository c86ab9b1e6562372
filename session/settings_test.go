package session

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	fs, err := OpenStore(Settings{Backend: "filesystem", Dir: t.TempDir(), FilenameTemplate: DefaultFilenameTemplate})
	require.NoError(t, err)
	assert.IsType(t, &FilesystemStore{}, fs)

	sqlite, err := OpenStore(Settings{Backend: "SQLite", DSN: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, sqlite)
	require.NoError(t, sqlite.Close())

	mc, err := OpenStore(Settings{Backend: "memcached", MemcachedServers: []string{"localhost:11211"}})
	require.NoError(t, err)
	assert.IsType(t, &MemcachedStore{}, mc)

	rs, err := OpenStore(Settings{Backend: "redis", RedisURL: "redis://localhost:6379/0"})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, rs)
	require.NoError(t, rs.Close())

	for _, s := range []Settings{
		{Backend: "sqlite"},
		{Backend: "postgres"},
		{Backend: "memcached"},
		{Backend: "redis"},
		{Backend: "cassandra"},
		{Backend: "filesystem", FilenameTemplate: "no-placeholder"},
	} {
		_, err := OpenStore(s)
		assert.ErrorIs(t, err, ErrBadConfig, "backend %q", s.Backend)
	}
}

func TestSettings_ManagerConfig(t *testing.T) {
	s := Settings{TTL: time.Hour, Salt: "pepper", MaxSessionBytes: 4096}
	cfg := s.ManagerConfig(nopStore{}, quiet)
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Equal(t, "pepper", cfg.Salt)
	assert.Equal(t, 4096, cfg.MaxSessionBytes)
	assert.Negative(t, cfg.CleanupInterval, "a zero interval disables cleanup")

	s.CleanupInterval = time.Minute
	assert.Equal(t, time.Minute, s.ManagerConfig(nopStore{}, quiet).CleanupInterval)
}

func TestSettings_MiddlewareConfig(t *testing.T) {
	s := Settings{CookieName: "sid", CookiePath: "/", CookieMaxAge: 60, CookieSecure: true, CookieSameSite: "Strict"}
	cfg := s.MiddlewareConfig(quiet)
	assert.Equal(t, "sid", cfg.CookieName)
	assert.Equal(t, 60, cfg.MaxAge)
	assert.True(t, cfg.Secure)
	assert.False(t, cfg.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cfg.SameSite)
}

func TestParseSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteLaxMode, parseSameSite("lax"))
	assert.Equal(t, http.SameSiteStrictMode, parseSameSite("STRICT"))
	assert.Equal(t, http.SameSiteNoneMode, parseSameSite("none"))
	assert.Equal(t, http.SameSite(0), parseSameSite(""))
	assert.Equal(t, http.SameSite(0), parseSameSite("bogus"))
}
