/*
Package body defines the response shape shared by the request scoping and
session middleware, and the Closing wrapper that turns "the body has been
consumed" into a deterministic cleanup point.

A Handler returns a Response whose Body is a lazily produced Iterator. The
caller (the ferry) drains the body or closes it early; either way Closing runs
the attached callbacks exactly once:

	b := body.NewClosing(resp.Body, saveSession, locals.CleanupFunc(ctx))
	for {
		chunk, err := b.Next()
		if err != nil {
			break // io.EOF after the callbacks ran, or a cleanup failure
		}
		w.Write(chunk)
	}
	b.Close() // no-op after a drain

HTTPHandler is a ready-made ferry for net/http.

A callback failure does not stop later callbacks. The first failure is
returned wrapped in ErrCleanup once all of them were attempted.

A body that is neither drained nor closed never runs its callbacks. That is a
bug in the caller; state guarded by such callbacks only grows, it is never
corrupted.
*/
package body
