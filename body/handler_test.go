package body_test

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Morditux/reqlocal/body"
)

func TestChain_Order(t *testing.T) {
	t.Parallel()
	var order []string
	tag := func(name string) body.Adapter {
		return func(next body.Handler) body.Handler {
			return body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
				order = append(order, name)
				return next.Handle(r)
			})
		}
	}
	h := body.Chain(body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		order = append(order, "app")
		return body.NewResponse(http.StatusOK, body.Empty()), nil
	}), tag("outer"), tag("inner"))

	_, err := h.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "app"}, order)
}

func TestHTTPHandler_StreamsAndCloses(t *testing.T) {
	t.Parallel()
	cleaned := 0
	h := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		resp := body.NewResponse(http.StatusCreated, body.NewClosing(body.String("he", "llo"), func() error {
			cleaned++
			return nil
		}))
		resp.Header.Set("Content-Type", "text/plain")
		return resp, nil
	})

	w := httptest.NewRecorder()
	body.HTTPHandler(h, slog.New(slog.DiscardHandler)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, 1, cleaned)
}

func TestHTTPHandler_HandlerError(t *testing.T) {
	t.Parallel()
	h := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		return nil, errors.New("nope")
	})

	w := httptest.NewRecorder()
	body.HTTPHandler(h, slog.New(slog.DiscardHandler)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHTTPHandler_CleanupFailureDoesNotChangeStatus(t *testing.T) {
	t.Parallel()
	h := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		return body.NewResponse(0, body.NewClosing(body.String("ok"), func() error {
			return errors.New("save failed")
		})), nil
	})

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		body.HTTPHandler(h, slog.New(slog.DiscardHandler)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHTTPHandler_NilResponse(t *testing.T) {
	t.Parallel()
	h := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		return nil, nil
	})

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		body.HTTPHandler(h, slog.New(slog.DiscardHandler)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
