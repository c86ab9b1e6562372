package body_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Morditux/reqlocal/body"
)

type recorder struct {
	calls []string
}

func (r *recorder) callback(name string, err error) func() error {
	return func() error {
		r.calls = append(r.calls, name)
		return err
	}
}

type closableSource struct {
	body.Iterator
	closed int
	rec    *recorder
}

func (s *closableSource) Close() error {
	s.closed++
	if s.rec != nil {
		s.rec.calls = append(s.rec.calls, "source")
	}
	return nil
}

func TestClosing_DrainRunsCallbacksOnceInOrder(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := body.NewClosing(body.String("a", "b"), rec.callback("first", nil), rec.callback("second", nil))

	chunk, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(chunk))
	chunk, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, "b", string(chunk))
	assert.Empty(t, rec.calls, "callbacks must not run before the end of the body")

	_, err = c.Next()
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"first", "second"}, rec.calls)
	assert.True(t, c.Closed())

	require.NoError(t, c.Close())
	_, err = c.Next()
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"first", "second"}, rec.calls)
}

func TestClosing_CloseEarly(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	src := &closableSource{Iterator: body.String("a", "b"), rec: rec}
	c := body.NewClosing(src, rec.callback("cleanup", nil))

	_, err := c.Next()
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, []string{"source", "cleanup"}, rec.calls)
	assert.Equal(t, 1, src.closed)

	_, err = c.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClosing_DrainClosesSource(t *testing.T) {
	t.Parallel()
	src := &closableSource{Iterator: body.Empty()}
	c := body.NewClosing(src)

	_, err := c.Next()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, c.Close())
	assert.Equal(t, 1, src.closed)
}

func TestClosing_FailingCallbackDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	errFirst := errors.New("first failure")
	errSecond := errors.New("second failure")
	c := body.NewClosing(body.Empty(),
		rec.callback("a", errFirst),
		rec.callback("b", errSecond),
		rec.callback("c", nil),
	)

	err := c.Close()
	require.ErrorIs(t, err, body.ErrCleanup)
	assert.ErrorIs(t, err, errFirst)
	assert.NotErrorIs(t, err, errSecond)
	assert.Equal(t, []string{"a", "b", "c"}, rec.calls)
}

func TestClosing_CleanupFailureReportedOnDrain(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	c := body.NewClosing(body.Empty(), func() error { return boom })

	_, err := c.Next()
	require.ErrorIs(t, err, body.ErrCleanup)
	assert.ErrorIs(t, err, boom)

	_, err = c.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClosing_PanickingCallbackIsRecovered(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := body.NewClosing(body.Empty(),
		func() error { panic("kaboom") },
		rec.callback("after", nil),
	)

	var err error
	require.NotPanics(t, func() { err = c.Close() })
	assert.ErrorIs(t, err, body.ErrCallbackPanic)
	assert.Equal(t, []string{"after"}, rec.calls)
}

func TestClosing_SourceError(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	broken := errors.New("broken pipe")
	c := body.NewClosing(body.Func(func() ([]byte, error) { return nil, broken }), rec.callback("cleanup", nil))

	_, err := c.Next()
	require.ErrorIs(t, err, broken)
	assert.Equal(t, []string{"cleanup"}, rec.calls)
	assert.True(t, c.Closed())
}

func TestClosing_Add(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := body.NewClosing(body.Empty(), rec.callback("a", nil), nil)
	require.True(t, c.Add(rec.callback("b", nil)))

	require.NoError(t, c.Close())
	assert.False(t, c.Add(rec.callback("c", nil)))
	assert.Equal(t, []string{"a", "b"}, rec.calls)
}

func TestClosing_Nested(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	inner := body.NewClosing(body.String("x"), rec.callback("inner", nil))
	outer := body.NewClosing(inner, rec.callback("outer", nil))

	require.NoError(t, outer.Close())
	assert.Equal(t, []string{"inner", "outer"}, rec.calls)
	assert.True(t, inner.Closed())
}

func TestClosing_NilSource(t *testing.T) {
	t.Parallel()
	called := false
	c := body.NewClosing(nil, func() error { called = true; return nil })

	_, err := c.Next()
	require.ErrorIs(t, err, io.EOF)
	assert.True(t, called)
}
