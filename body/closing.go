package body

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrCleanup wraps the first failure returned by a cleanup callback.
	ErrCleanup = errors.New("body cleanup failed")

	// ErrCallbackPanic is returned in place of a cleanup callback that panicked.
	ErrCallbackPanic = errors.New("cleanup callback panicked")
)

// Closing wraps a response body and runs its cleanup callbacks exactly once,
// either when the body is drained or when Close is called, whichever comes
// first.
//
// When the wrapped Iterator implements io.Closer it is closed before the
// callbacks run, on both paths.
//
// Closing is safe for concurrent use: Close may be called from another
// goroutine while Next is in progress. Calls into the wrapped Iterator are
// serialized, so a Close racing a blocked Next closes the source once that
// Next returns.
type Closing struct {
	// srcMu serializes src.Next and src.Close. mu may be taken while
	// holding srcMu, never the reverse.
	srcMu sync.Mutex
	src   Iterator

	mu        sync.Mutex
	callbacks []func() error
	closed    bool
}

var _ io.Closer = (*Closing)(nil)

// NewClosing wraps src. Callbacks run in the order given.
//
// A nil src is treated as an empty body.
func NewClosing(src Iterator, callbacks ...func() error) *Closing {
	if src == nil {
		src = Empty()
	}
	cbs := make([]func() error, 0, len(callbacks))
	for _, cb := range callbacks {
		if cb != nil {
			cbs = append(cbs, cb)
		}
	}
	return &Closing{src: src, callbacks: cbs}
}

// Add appends callbacks. It reports false, and attaches nothing, when the
// body has already been closed.
func (c *Closing) Add(callbacks ...func() error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	for _, cb := range callbacks {
		if cb != nil {
			c.callbacks = append(c.callbacks, cb)
		}
	}
	return true
}

// Closed reports whether cleanup has already run.
func (c *Closing) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Next returns the next chunk of the wrapped body.
//
// At the end of the body the cleanup callbacks run before io.EOF is
// reported. If a callback fails the cleanup error is returned instead of
// io.EOF; every later call returns io.EOF.
//
// A source error other than io.EOF also ends the body: cleanup runs and the
// source error is returned, joined with any cleanup failure.
func (c *Closing) Next() ([]byte, error) {
	c.srcMu.Lock()
	if c.Closed() {
		c.srcMu.Unlock()
		return nil, io.EOF
	}
	chunk, err := c.src.Next()
	c.srcMu.Unlock()
	if err == nil {
		return chunk, nil
	}

	cleanupErr := c.finish()
	if errors.Is(err, io.EOF) {
		if cleanupErr != nil {
			return nil, cleanupErr
		}
		return nil, io.EOF
	}
	return nil, errors.Join(err, cleanupErr)
}

// Close ends the body early. The first call closes the wrapped Iterator if it
// can be closed and runs the callbacks; later calls return nil.
func (c *Closing) Close() error {
	return c.finish()
}

func (c *Closing) finish() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	callbacks := c.callbacks
	c.callbacks = nil
	c.mu.Unlock()

	if closer, ok := c.src.(io.Closer); ok {
		closeSource := func() error {
			c.srcMu.Lock()
			defer c.srcMu.Unlock()
			return closer.Close()
		}
		callbacks = append([]func() error{closeSource}, callbacks...)
	}

	var first error
	for _, cb := range callbacks {
		if err := run(cb); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return fmt.Errorf("%w: %w", ErrCleanup, first)
	}
	return nil
}

func run(cb func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()
	return cb()
}
