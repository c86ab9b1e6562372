package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Morditux/reqlocal/internal/logger"
)

func TestError(t *testing.T) {
	t.Parallel()
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestSessionID(t *testing.T) {
	t.Parallel()
	attr := logger.SessionID("0123456789abcdef")
	require.Equal(t, "session_id", attr.Key)
	assert.Equal(t, "01234567", attr.Value.String())

	assert.Equal(t, "abc", logger.SessionID("abc").Value.String())
	assert.True(t, logger.SessionID("").Equal(slog.Attr{}))
}

func TestDuration(t *testing.T) {
	t.Parallel()
	attr := logger.Duration(time.Second)
	require.Equal(t, "duration", attr.Key)
	assert.Equal(t, time.Second, attr.Value.Duration())
}

func TestOr(t *testing.T) {
	t.Parallel()
	assert.Same(t, slog.Default(), logger.Or(nil))

	l := slog.New(slog.DiscardHandler)
	assert.Same(t, l, logger.Or(l))
}
