/*
Package local provides request scoped storage for long running servers.

A Local maps an Identity to a private namespace of named values. The Identity
travels in the context.Context of the request, so two requests served at the
same time never see each other's values:

	var currentUser = local.New()
	locals := local.NewManager(currentUser)

	app := body.HandlerFunc(func(r *http.Request) (*body.Response, error) {
		if err := currentUser.Set(r.Context(), "name", "ada"); err != nil {
			return nil, err
		}
		return render(r)
	})

	http.Handle("/", body.HTTPHandler(locals.Wrap(app), nil))

Manager.Wrap binds an Identity to every request and releases its namespaces
once the response body has been drained or closed, so application code never
has to remember an end-of-request call. Reading a name before any value was
set for the identity fails with ErrNotBound; reading a name that was never set
fails with ErrAttributeMissing.

Locals and Managers are plain values: construct them where the server is
assembled and hand them to the handlers that need them.

The lock guarding a Local is only held for map operations. All returns a copy
taken at call time and iterates it without the lock.
*/
package local
