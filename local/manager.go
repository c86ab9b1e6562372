package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Morditux/reqlocal/body"
)

// Manager releases the namespaces of one identity from a set of Locals at
// the end of a request. It does not own the Locals; they may be used
// directly as well.
type Manager struct {
	mu     sync.RWMutex
	locals []*Local
}

// NewManager returns a Manager for locals.
func NewManager(locals ...*Local) *Manager {
	m := &Manager{}
	m.Add(locals...)
	return m
}

// Add places more Locals under m.
func (m *Manager) Add(locals ...*Local) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range locals {
		if l != nil {
			m.locals = append(m.locals, l)
		}
	}
}

// Locals returns the managed Locals in the order they were added.
func (m *Manager) Locals() []*Local {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Local, len(m.locals))
	copy(out, m.locals)
	return out
}

// Cleanup evicts the namespace of the identity carried by ctx from every
// managed Local. Locals holding nothing for that identity are skipped, so
// calling Cleanup more than once is harmless.
func (m *Manager) Cleanup(ctx context.Context) error {
	id, ok := FromContext(ctx)
	if !ok {
		return ErrNoIdentity
	}
	m.CleanupIdentity(id)
	return nil
}

// CleanupIdentity evicts id from every managed Local.
func (m *Manager) CleanupIdentity(id Identity) {
	for _, l := range m.Locals() {
		l.evict(id)
	}
}

// CleanupFunc returns a body cleanup callback evicting the identity carried
// by ctx. The identity is resolved now, not when the callback runs.
func (m *Manager) CleanupFunc(ctx context.Context) func() error {
	id, ok := FromContext(ctx)
	if !ok {
		return func() error { return ErrNoIdentity }
	}
	return func() error {
		m.CleanupIdentity(id)
		return nil
	}
}

// Wrap returns a Handler that binds a fresh Identity to each request and
// evicts it once the response body is drained or closed. When next fails or
// panics the identity is evicted before Wrap returns or the panic continues.
//
// An Identity inherited from the server's base context is not reused, so
// requests never share a namespace. Only a request already inside another
// Wrap keeps its identity, which lets Managers nest.
func (m *Manager) Wrap(next body.Handler) body.Handler {
	return body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		ctx := requestScope(r.Context())
		cleanup := m.CleanupFunc(ctx)

		done := false
		defer func() {
			if !done {
				_ = cleanup()
			}
		}()

		resp, err := next.Handle(r.WithContext(ctx))
		done = true
		if err != nil {
			return nil, errors.Join(err, cleanup())
		}
		if resp == nil {
			resp = body.NewResponse(http.StatusOK, nil)
		}
		resp.Body = body.NewClosing(resp.Body, cleanup)
		return resp, nil
	})
}

type scopeKey struct{}

// requestScope returns ctx when an enclosing Wrap already bound its identity,
// and otherwise a copy of ctx carrying a new one.
func requestScope(ctx context.Context) context.Context {
	if ctx.Value(scopeKey{}) != nil {
		if _, ok := FromContext(ctx); ok {
			return ctx
		}
	}
	ctx = WithIdentity(ctx, NewIdentity())
	return context.WithValue(ctx, scopeKey{}, struct{}{})
}

// String reports the number of managed Locals.
func (m *Manager) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("local.Manager(locals: %d)", len(m.locals))
}
