package local

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"sync"
)

var (
	// ErrNotBound is returned when the calling identity has no namespace yet.
	ErrNotBound = errors.New("no namespace bound to identity")

	// ErrAttributeMissing is returned when a name is absent from the namespace.
	ErrAttributeMissing = errors.New("attribute missing")

	// ErrNoIdentity is returned when the context carries no Identity.
	ErrNoIdentity = errors.New("context carries no identity")
)

// Local is a registry of per-identity namespaces. Each identity sees only the
// names it set itself.
//
// The zero value is ready to use. A Local must not be copied after first use.
type Local struct {
	mu      sync.Mutex
	storage map[Identity]map[string]any
}

// New returns an empty Local.
func New() *Local {
	return &Local{}
}

// Get returns the value stored under name for the identity carried by ctx.
// The value is read under the lock; nothing guarantees it is still current
// once Get returns.
func (l *Local) Get(ctx context.Context, name string) (any, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoIdentity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ns, ok := l.storage[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, id)
	}
	v, ok := ns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAttributeMissing, name)
	}
	return v, nil
}

// Set stores value under name, creating the namespace of the calling
// identity on first write.
func (l *Local) Set(ctx context.Context, name string, value any) error {
	id, ok := FromContext(ctx)
	if !ok {
		return ErrNoIdentity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.storage == nil {
		l.storage = make(map[Identity]map[string]any)
	}
	ns, ok := l.storage[id]
	if !ok {
		ns = make(map[string]any)
		l.storage[id] = ns
	}
	ns[name] = value
	return nil
}

// Delete removes name from the namespace of the calling identity. The
// namespace itself stays bound, even when it becomes empty; Manager.Cleanup
// releases it.
func (l *Local) Delete(ctx context.Context, name string) error {
	id, ok := FromContext(ctx)
	if !ok {
		return ErrNoIdentity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ns, ok := l.storage[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotBound, id)
	}
	if _, ok := ns[name]; !ok {
		return fmt.Errorf("%w: %q", ErrAttributeMissing, name)
	}
	delete(ns, name)
	return nil
}

// Len returns the number of bound namespaces.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.storage)
}

// All returns a snapshot of every bound namespace, taken when All is called.
// The sequence is iterated without holding the lock, so entries may be stale
// by the time they are yielded. Each namespace is a shallow copy.
func (l *Local) All() iter.Seq2[Identity, map[string]any] {
	l.mu.Lock()
	snapshot := make(map[Identity]map[string]any, len(l.storage))
	for id, ns := range l.storage {
		snapshot[id] = maps.Clone(ns)
	}
	l.mu.Unlock()

	return func(yield func(Identity, map[string]any) bool) {
		for id, ns := range snapshot {
			if !yield(id, ns) {
				return
			}
		}
	}
}

func (l *Local) evict(id Identity) {
	l.mu.Lock()
	delete(l.storage, id)
	l.mu.Unlock()
}
