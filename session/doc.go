/*
Package session provides persistent, cookie addressed sessions for handlers
built on package body.

It has three layers:

  - Store: a pluggable persistence backend. Implementations ship for the
    filesystem (one file per session), SQLite (modernc.org/sqlite, CGO-free),
    PostgreSQL (github.com/lib/pq), Memcached (github.com/bradfitz/gomemcache)
    and Redis (github.com/redis/go-redis/v9).
  - Manager: generates unguessable identifiers, validates identifiers taken
    from requests before trusting them, and loads, saves and deletes sessions
    through a Store.
  - Middleware: reads and writes the session cookie and saves a modified
    session once the response body has been drained or closed.

Usage:

	store, err := session.NewFilesystemStore("/var/lib/myapp/sessions")
	if err != nil {
		log.Fatal(err)
	}

	mgr := session.NewManager(session.Config{Store: store, TTL: 24 * time.Hour})
	defer mgr.Close()

	sessions := session.NewMiddleware(mgr, session.MiddlewareConfig{HttpOnly: true})

	app := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		s, _ := session.FromContext(r.Context())
		n, _ := s.Get("visits")
		count, _ := n.(int)
		s.Set("visits", count+1)
		return body.NewResponse(http.StatusOK, body.String("hello")), nil
	})

	http.Handle("/", body.HTTPHandler(sessions.Wrap(app), nil))

Identifiers:

Session identifiers are 40 lowercase hex characters, the SHA-1 of a salt, the
clock, a counter and crypto/rand entropy. A cookie value of any other shape is
ignored and a new session is started; it never reaches a Store. A session
that cannot be found is indistinguishable from a new one.

Modification tracking:

Set, Delete, Pop, SetDefault, Update and Clear mark a session modified when
they change it, and only modified sessions are saved by SaveIfModified and the Middleware.
Tracking is shallow: changing a map or slice held in the session does not
mark it. Call MarkModified in that case.

Thread Safety:

The Manager and Store implementations are safe for concurrent use by
multiple goroutines, and so are Session methods. Values stored in a session
are shared, not copied.
*/
package session
