package session

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Settings selects and configures a store, a Manager and a Middleware from
// the environment. Load it with config.Load.
type Settings struct {
	// Backend is one of filesystem, sqlite, postgres, memcached or redis.
	Backend          string        `env:"SESSION_BACKEND" envDefault:"filesystem"`
	Dir              string        `env:"SESSION_DIR"`
	FilenameTemplate string        `env:"SESSION_FILENAME_TEMPLATE" envDefault:"session_%s.sess"`
	DSN              string        `env:"SESSION_DSN"`
	MemcachedServers []string      `env:"SESSION_MEMCACHED_SERVERS" envSeparator:","`
	RedisURL         string        `env:"SESSION_REDIS_URL"`
	TTL              time.Duration `env:"SESSION_TTL"`
	CleanupInterval  time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"10m"`
	MaxSessionBytes  int           `env:"SESSION_MAX_BYTES"`
	Salt             string        `env:"SESSION_SALT"`

	CookieName     string `env:"SESSION_COOKIE_NAME" envDefault:"session_id"`
	CookiePath     string `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"SESSION_COOKIE_DOMAIN"`
	CookieMaxAge   int    `env:"SESSION_COOKIE_MAX_AGE"`
	CookieSecure   bool   `env:"SESSION_COOKIE_SECURE"`
	CookieHttpOnly bool   `env:"SESSION_COOKIE_HTTP_ONLY"`
	// CookieSameSite is one of lax, strict or none; empty leaves it unset.
	CookieSameSite string `env:"SESSION_COOKIE_SAME_SITE"`
}

// OpenStore opens the backend named by s.Backend.
func OpenStore(s Settings) (Store, error) {
	switch strings.ToLower(s.Backend) {
	case "", "filesystem":
		return NewFilesystemStoreWithConfig(FilesystemConfig{
			Dir:              s.Dir,
			FilenameTemplate: s.FilenameTemplate,
			MaxAge:           s.TTL,
			MaxSessionBytes:  s.MaxSessionBytes,
		})
	case "sqlite":
		if s.DSN == "" {
			return nil, fmt.Errorf("%w: sqlite backend needs SESSION_DSN", ErrBadConfig)
		}
		return NewSQLiteStoreWithConfig(SQLiteConfig{
			DSN:             s.DSN,
			MaxOpenConns:    16,
			MaxIdleConns:    16,
			MaxSessionBytes: s.MaxSessionBytes,
		})
	case "postgres":
		if s.DSN == "" {
			return nil, fmt.Errorf("%w: postgres backend needs SESSION_DSN", ErrBadConfig)
		}
		return NewPostgreSQLStoreWithConfig(PostgreSQLConfig{
			DSN:             s.DSN,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
			MaxSessionBytes: s.MaxSessionBytes,
		})
	case "memcached":
		if len(s.MemcachedServers) == 0 {
			return nil, fmt.Errorf("%w: memcached backend needs SESSION_MEMCACHED_SERVERS", ErrBadConfig)
		}
		return NewMemcachedStoreWithConfig(MemcachedConfig{
			Servers:         s.MemcachedServers,
			TTL:             s.TTL,
			MaxSessionBytes: s.MaxSessionBytes,
			Timeout:         time.Second,
		}), nil
	case "redis":
		return NewRedisStoreWithConfig(RedisConfig{
			URL:             s.RedisURL,
			TTL:             s.TTL,
			MaxSessionBytes: s.MaxSessionBytes,
		})
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", ErrBadConfig, s.Backend)
	}
}

// ManagerConfig returns the Manager configuration described by s.
func (s Settings) ManagerConfig(store Store, log *slog.Logger) Config {
	interval := s.CleanupInterval
	if interval == 0 {
		interval = -1
	}
	return Config{
		Store:           store,
		TTL:             s.TTL,
		Salt:            s.Salt,
		CleanupInterval: interval,
		MaxSessionBytes: s.MaxSessionBytes,
		Logger:          log,
	}
}

// MiddlewareConfig returns the cookie configuration described by s.
func (s Settings) MiddlewareConfig(log *slog.Logger) MiddlewareConfig {
	return MiddlewareConfig{
		CookieName:   s.CookieName,
		CookiePath:   s.CookiePath,
		CookieDomain: s.CookieDomain,
		MaxAge:       s.CookieMaxAge,
		Secure:       s.CookieSecure,
		HttpOnly:     s.CookieHttpOnly,
		SameSite:     parseSameSite(s.CookieSameSite),
		Logger:       log,
	}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return 0
	}
}
