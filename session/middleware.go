package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Morditux/reqlocal/body"
	"github.com/Morditux/reqlocal/internal/logger"
)

// MiddlewareConfig configures the session cookie. Every attribute except
// Path is off unless set.
type MiddlewareConfig struct {
	CookieName   string // Defaults to "session_id".
	CookiePath   string // Defaults to "/".
	CookieDomain string
	// MaxAge in seconds. It also sets Expires. Zero sends a browser session cookie.
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
	Logger   *slog.Logger
}

// Middleware restores the session named by the request cookie, exposes it to
// the wrapped handler through the request context and saves it, when
// modified, once the response body has been consumed.
type Middleware struct {
	manager *Manager
	cfg     MiddlewareConfig
	log     *slog.Logger
}

func NewMiddleware(m *Manager, cfg MiddlewareConfig) *Middleware {
	if cfg.CookieName == "" {
		cfg.CookieName = "session_id"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	return &Middleware{
		manager: m,
		cfg:     cfg,
		log:     logger.Or(cfg.Logger).With(logger.Component("session")),
	}
}

type sessionKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// Wrap returns a Handler with the same shape as next.
//
// Set-Cookie is added when the session should be saved at the moment next
// returns; a deleted session gets an expired cookie. The save itself runs
// as a cleanup callback of the response body. A failed save surfaces from
// the body, after the status and headers were produced.
//
// When next fails nothing is saved.
func (mw *Middleware) Wrap(next body.Handler) body.Handler {
	return body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		sess, err := mw.load(r)
		if err != nil {
			return nil, err
		}

		resp, err := next.Handle(r.WithContext(NewContext(r.Context(), sess)))
		if err != nil {
			return nil, err
		}
		if resp == nil {
			resp = body.NewResponse(http.StatusOK, nil)
		}
		if resp.Header == nil {
			resp.Header = make(http.Header)
		}

		switch {
		case sess.Deleted():
			resp.Header.Add("Set-Cookie", mw.expiredCookie().String())
		case sess.ShouldSave():
			resp.Header.Add("Set-Cookie", mw.cookie(sess.ID).String())
		}

		// The save outlives the request context when the client hangs up
		// right after the last chunk.
		saveCtx := context.WithoutCancel(r.Context())
		resp.Body = body.NewClosing(resp.Body, func() error {
			return mw.manager.SaveIfModified(saveCtx, sess)
		})
		return resp, nil
	})
}

func (mw *Middleware) load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(mw.cfg.CookieName)
	if err != nil {
		return mw.manager.New()
	}
	if !IsValidKey(c.Value) {
		mw.log.DebugContext(r.Context(), "ignoring malformed session cookie")
		return mw.manager.New()
	}

	sess, err := mw.manager.Get(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	if sess.IsNew() {
		mw.log.DebugContext(r.Context(), "unknown session, starting a new one", logger.SessionID(c.Value))
	}
	return sess, nil
}

func (mw *Middleware) cookie(value string) *http.Cookie {
	c := &http.Cookie{
		Name:     mw.cfg.CookieName,
		Value:    value,
		Path:     mw.cfg.CookiePath,
		Domain:   mw.cfg.CookieDomain,
		Secure:   mw.cfg.Secure,
		HttpOnly: mw.cfg.HttpOnly,
		SameSite: mw.cfg.SameSite,
	}
	if mw.cfg.MaxAge > 0 {
		c.MaxAge = mw.cfg.MaxAge
		c.Expires = time.Now().Add(time.Duration(mw.cfg.MaxAge) * time.Second)
	}
	return c
}

func (mw *Middleware) expiredCookie() *http.Cookie {
	c := mw.cookie("")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}
