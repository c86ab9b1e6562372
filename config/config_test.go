package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Morditux/reqlocal/config"
	"github.com/Morditux/reqlocal/session"
)

type serverConfig struct {
	Addr    string        `env:"TEST_SERVER_ADDR" envDefault:":8080"`
	Timeout time.Duration `env:"TEST_SERVER_TIMEOUT" envDefault:"5s"`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET,required"`
}

func TestLoad_DefaultsAndCache(t *testing.T) {
	config.Reset()
	t.Setenv("TEST_SERVER_ADDR", ":9090")

	var cfg serverConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	t.Setenv("TEST_SERVER_ADDR", ":1")
	var again serverConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, ":9090", again.Addr, "second load must come from the cache")

	config.Reset()
	require.NoError(t, config.Load(&again))
	assert.Equal(t, ":1", again.Addr)
}

func TestLoad_Required(t *testing.T) {
	config.Reset()
	var cfg requiredConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParse)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoad_SessionSettings(t *testing.T) {
	config.Reset()
	t.Setenv("SESSION_BACKEND", "memcached")
	t.Setenv("SESSION_MEMCACHED_SERVERS", "10.0.0.1:11211,10.0.0.2:11211")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SESSION_COOKIE_HTTP_ONLY", "true")

	var s session.Settings
	require.NoError(t, config.Load(&s))
	assert.Equal(t, "memcached", s.Backend)
	assert.Equal(t, []string{"10.0.0.1:11211", "10.0.0.2:11211"}, s.MemcachedServers)
	assert.Equal(t, time.Hour, s.TTL)
	assert.Equal(t, 10*time.Minute, s.CleanupInterval)
	assert.Equal(t, "session_id", s.CookieName)
	assert.Equal(t, "/", s.CookiePath)
	assert.True(t, s.CookieHttpOnly)
	assert.False(t, s.CookieSecure)
}
