package body

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Morditux/reqlocal/internal/logger"
)

// Response is what a Handler produces: a status, headers and a lazily
// produced body. Middleware in this module never inspects Status.
type Response struct {
	Status int
	Header http.Header
	Body   Iterator
}

// NewResponse returns a Response with an initialized Header.
func NewResponse(status int, b Iterator) *Response {
	return &Response{Status: status, Header: make(http.Header), Body: b}
}

// A Handler serves one request and returns its Response. The caller owns the
// returned body and must drain or Close it.
type Handler interface {
	Handle(r *http.Request) (*Response, error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(r *http.Request) (*Response, error)

// Handle calls f(r).
func (f HandlerFunc) Handle(r *http.Request) (*Response, error) { return f(r) }

// An Adapter wraps a Handler, returning one of the same shape.
type Adapter func(Handler) Handler

// Chain glues the set of adapters to the handler. The first adapter is the
// outermost.
func Chain(h Handler, adapters ...Adapter) Handler {
	for i := len(adapters) - 1; i >= 0; i-- {
		h = adapters[i](h)
	}
	return h
}

// HTTPHandler serves h over net/http. It writes the status and headers,
// streams the body, flushing after each chunk when possible, and always
// closes the body, including when the client goes away mid-stream.
//
// Failures after the headers were written can only be logged.
func HTTPHandler(h Handler, log *slog.Logger) http.Handler {
	log = logger.Or(log).With(logger.Component("body"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.Handle(r)
		if err != nil {
			log.ErrorContext(r.Context(), "handler failed",
				logger.Method(r.Method), logger.Path(r.URL.Path), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if resp == nil {
			resp = NewResponse(http.StatusOK, nil)
		}

		c, ok := resp.Body.(*Closing)
		if !ok {
			c = NewClosing(resp.Body)
		}
		defer func() {
			if err := c.Close(); err != nil {
				log.ErrorContext(r.Context(), "body cleanup failed",
					logger.Method(r.Method), logger.Path(r.URL.Path), logger.Error(err))
			}
		}()

		for k, vs := range resp.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)

		flusher, _ := w.(http.Flusher)
		for {
			chunk, err := c.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				log.ErrorContext(r.Context(), "body failed",
					logger.Method(r.Method), logger.Path(r.URL.Path),
					logger.StatusCode(status), logger.Error(err))
				return
			}
			if len(chunk) == 0 {
				continue
			}
			if _, err := w.Write(chunk); err != nil {
				log.DebugContext(r.Context(), "client went away", logger.Error(err))
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	})
}
