package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/Morditux/reqlocal/body"
	"github.com/Morditux/reqlocal/config"
	"github.com/Morditux/reqlocal/local"
	"github.com/Morditux/reqlocal/session"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// SESSION_BACKEND=sqlite SESSION_DSN=sessions.db selects another store.
	var settings session.Settings
	config.MustLoad(&settings)

	store, err := session.OpenStore(settings)
	if err != nil {
		log.Error("failed to open session store", "error", err)
		os.Exit(1)
	}

	mgr := session.NewManager(settings.ManagerConfig(store, log))
	defer mgr.Close()

	sessions := session.NewMiddleware(mgr, settings.MiddlewareConfig(log))

	// request holds per-request values any code on the request path can read.
	request := local.New()
	locals := local.NewManager(request)

	greet := func(r *http.Request) string {
		name, err := request.Get(r.Context(), "visitor")
		if err != nil {
			return "stranger"
		}
		return name.(string)
	}

	visits := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		s, _ := session.FromContext(r.Context())

		count := 0
		if val, ok := s.Get("count"); ok {
			if c, ok := val.(int); ok {
				count = c
			}
		}
		count++
		s.Set("count", count)

		if err := request.Set(r.Context(), "visitor", fmt.Sprintf("visitor #%d", count)); err != nil {
			return nil, err
		}

		resp := body.NewResponse(http.StatusOK, body.FromSeq(func(yield func([]byte) bool) {
			if !yield([]byte("Hello, " + greet(r) + "! ")) {
				return
			}
			yield([]byte(fmt.Sprintf("You have visited this page %d times.\n", count)))
		}))
		resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		return resp, nil
	})

	logout := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		s, _ := session.FromContext(r.Context())
		if err := mgr.Delete(r.Context(), s); err != nil {
			return nil, err
		}
		return body.NewResponse(http.StatusOK, body.String("Logged out!\n")), nil
	})

	mux := http.NewServeMux()
	mux.Handle("/", body.HTTPHandler(body.Chain(visits, locals.Wrap, sessions.Wrap), log))
	mux.Handle("/logout", body.HTTPHandler(body.Chain(logout, locals.Wrap, sessions.Wrap), log))

	log.Info("server starting", "addr", ":8080", "backend", settings.Backend)
	if err := http.ListenAndServe(":8080", mux); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
