// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/request_context"
)

// plainErrorPage writes the status and error text.
func plainErrorPage(w http.ResponseWriter, r *http.Request) {
	rc := request_context.FromRequest(r)
	w.WriteHeader(rc.StatusCode)

	_, _ = w.Write([]byte("error page: " + http.StatusText(rc.StatusCode)))
}

// counter is a handler that records its calls.
type counter struct {
	calls int
	body  string
}

func (c *counter) handle(w http.ResponseWriter, _ *http.Request) error {
	c.calls++

	_, err := w.Write([]byte(c.body))

	return err
}

type namedGate struct {
	name string
	err  error
	log  *[]string
}

func (g namedGate) Name() string { return g.name }

func (g namedGate) Check(*http.Request) error {
	if g.log != nil {
		*g.log = append(*g.log, g.name)
	}

	return g.err
}

func dispatch(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(method, target, nil)
	r = r.WithContext(request_context.WithRequestContext(r.Context(), r, nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	return rr
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	table := NewTable(plainErrorPage)
	root := &counter{body: "root"}
	refill := &counter{body: "refill"}

	require.NoError(t, table.Get("/", root.handle, Options{Name: "home"}))
	require.NoError(t, table.Get("/refill", refill.handle, Options{Name: "refill.index"}))
	require.NoError(t, table.Seal())

	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
	}{
		{"root", http.MethodGet, "/", http.StatusOK, "root"},
		{"exact path", http.MethodGet, "/refill", http.StatusOK, "refill"},
		{"head follows get", http.MethodHead, "/refill", http.StatusOK, ""},
		{"root is not a prefix", http.MethodGet, "/nonexistent", http.StatusNotFound, "error page: Not Found"},
		{"other method", http.MethodPost, "/refill", http.StatusMethodNotAllowed, "error page: Method Not Allowed"},
	}

	for _, tt := range tests {
		rr := dispatch(t, table, tt.method, tt.target)

		assert.Equal(t, tt.status, rr.Code, tt.name)

		if tt.method != http.MethodHead {
			assert.Equal(t, tt.body, rr.Body.String(), tt.name)
		}
	}

	assert.Equal(t, 1, root.calls, "unmatched paths must not reach the root handler")
	assert.Equal(t, 2, refill.calls)
}

func TestRestWildcardWithoutSlash(t *testing.T) {
	t.Parallel()

	table := NewTable(plainErrorPage)
	calls := 0
	files := func(w http.ResponseWriter, r *http.Request) error {
		calls++

		_, err := w.Write([]byte(r.PathValue("path")))

		return err
	}
	require.NoError(t, table.Get("/build/{path...}", files, Options{Name: "build"}))
	require.NoError(t, table.Seal())

	rr := dispatch(t, table, http.MethodGet, "/build")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, rr.Header().Get("Location"))
	assert.False(t, table.Matches(httptest.NewRequest(http.MethodGet, "/build", nil)))

	rr = dispatch(t, table, http.MethodGet, "/build/js/app.js")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "js/app.js", rr.Body.String(), "path wildcards reach the handler")
	assert.True(t, table.Matches(httptest.NewRequest(http.MethodGet, "/build/app.js", nil)))
	assert.False(t, table.Matches(httptest.NewRequest(http.MethodPost, "/build/app.js", nil)))
	assert.Equal(t, 1, calls)
}

func TestMethodNotAllowedSetsAllow(t *testing.T) {
	t.Parallel()

	table := NewTable(plainErrorPage)
	require.NoError(t, table.Get("/refill", (&counter{}).handle, Options{Name: "refill.index"}))
	require.NoError(t, table.Seal())

	rr := dispatch(t, table, http.MethodDelete, "/refill")

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Contains(t, rr.Header().Get("Allow"), http.MethodGet)
}

func TestUnsealedTableIsUnavailable(t *testing.T) {
	t.Parallel()

	table := NewTable(plainErrorPage)
	h := &counter{}
	require.NoError(t, table.Get("/", h.handle, Options{Name: "home"}))

	rr := dispatch(t, table, http.MethodGet, "/")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Zero(t, h.calls)
	assert.False(t, table.Sealed())
}

func TestRegistrationRules(t *testing.T) {
	t.Parallel()

	noop := (&counter{}).handle

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()

		table := NewTable(plainErrorPage)
		require.NoError(t, table.Get("/dashboard", noop, Options{Name: "dashboard"}))

		err := table.Get("/other", noop, Options{Name: "dashboard"})
		require.ErrorIs(t, err, ErrDuplicateName)

		// the failure is reported again when sealing, and the table stays unsealed
		require.ErrorIs(t, table.Seal(), ErrDuplicateName)
		assert.False(t, table.Sealed())
	})

	t.Run("duplicate name across groups", func(t *testing.T) {
		t.Parallel()

		table := NewTable(plainErrorPage)
		require.NoError(t, table.Group("/settings").Get("/profile", noop, Options{Name: "profile.edit"}))
		require.ErrorIs(t, table.Group("").Get("/profile", noop, Options{Name: "profile.edit"}), ErrDuplicateName)
	})

	t.Run("duplicate method and path", func(t *testing.T) {
		t.Parallel()

		table := NewTable(plainErrorPage)
		require.NoError(t, table.Get("/refill", noop, Options{Name: "a"}))
		require.ErrorIs(t, table.Get("/refill/", noop, Options{Name: "b"}), ErrDuplicateRoute)

		// same path, other method is fine
		require.NoError(t, table.Register(http.MethodPost, "/refill", noop, Options{Name: "c"}))
	})

	t.Run("after seal", func(t *testing.T) {
		t.Parallel()

		table := NewTable(plainErrorPage)
		require.NoError(t, table.Get("/", noop, Options{Name: "home"}))
		require.NoError(t, table.Seal())

		require.ErrorIs(t, table.Get("/late", noop, Options{Name: "late"}), ErrSealed)
		require.ErrorIs(t, table.Seal(), ErrSealed)

		rr := dispatch(t, table, http.MethodGet, "/late")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		table := NewTable(plainErrorPage)
		require.ErrorIs(t, table.Get("refill", noop, Options{Name: "a"}), ErrInvalidRoute)
		require.ErrorIs(t, table.Get("/refill", noop, Options{}), ErrInvalidRoute)
		require.ErrorIs(t, table.Get("/refill", nil, Options{Name: "b"}), ErrInvalidRoute)
	})

	t.Run("conflicting patterns", func(t *testing.T) {
		t.Parallel()

		table := NewTable(plainErrorPage)
		require.NoError(t, table.Get("/a/{x}", noop, Options{Name: "a"}))
		require.NoError(t, table.Get("/{y}/b", noop, Options{Name: "b"}))

		require.ErrorIs(t, table.Seal(), ErrRouteConflict)
	})
}

func TestGates(t *testing.T) {
	t.Parallel()

	var order []string

	denied := errors.New("denied")

	table := NewTable(plainErrorPage)
	login := &counter{body: "login"}
	open := &counter{}
	closed := &counter{}
	redirected := &counter{}

	require.NoError(t, table.Get("/login", login.handle, Options{Name: "login"}))

	group := table.Group("/area", namedGate{name: "group", log: &order})

	require.NoError(t, group.Get("/open", open.handle, Options{
		Name:  "open",
		Gates: []gate.Gate{namedGate{name: "route", log: &order}},
	}))
	require.NoError(t, group.Get("/closed", closed.handle, Options{
		Name: "closed",
		Gates: []gate.Gate{
			namedGate{name: "forbid", err: middleware.NewStatusError(http.StatusForbidden, denied), log: &order},
			namedGate{name: "never", log: &order},
		},
	}))
	require.NoError(t, group.Get("/redirected", redirected.handle, Options{
		Name: "redirected",
		Gates: []gate.Gate{namedGate{
			name: "auth",
			err:  &gate.RedirectError{Route: "login", Query: map[string][]string{"intended": {"/area/redirected"}}},
		}},
	}))
	require.NoError(t, table.Seal())

	rr := dispatch(t, table, http.MethodGet, "/area/open")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"group", "route"}, order, "group gates run first")
	assert.Equal(t, 1, open.calls)

	order = nil
	rr = dispatch(t, table, http.MethodGet, "/area/closed")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, []string{"group", "forbid"}, order, "the first failing gate stops the chain")
	assert.Zero(t, closed.calls)

	rr = dispatch(t, table, http.MethodGet, "/area/redirected")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login?intended=%2Farea%2Fredirected", rr.Header().Get("Location"))
	assert.Zero(t, redirected.calls)
	assert.Zero(t, login.calls)
}

func TestRouteNameInContext(t *testing.T) {
	t.Parallel()

	var seen string

	table := NewTable(plainErrorPage)
	require.NoError(t, table.Get("/refill", func(_ http.ResponseWriter, r *http.Request) error {
		seen = request_context.FromRequest(r).RouteName

		return nil
	}, Options{Name: "refill.index"}))
	require.NoError(t, table.Seal())

	dispatch(t, table, http.MethodGet, "/refill")

	assert.Equal(t, "refill.index", seen)
}

func TestURL(t *testing.T) {
	t.Parallel()

	noop := (&counter{}).handle

	table := NewTable(plainErrorPage)
	require.NoError(t, table.Get("/", noop, Options{Name: "home"}))
	require.NoError(t, table.Get("/verify-email/{id}/{hash}", noop, Options{Name: "verification.verify"}))
	require.NoError(t, table.Get("/reset-password/{token}", noop, Options{Name: "password.reset"}))
	require.NoError(t, table.Get("/build/{path...}", noop, Options{Name: "build"}))

	tests := []struct {
		name   string
		route  string
		params map[string]string
		want   string
	}{
		{"static", "home", nil, "/"},
		{"params", "verification.verify", map[string]string{"id": "42", "hash": "abc"}, "/verify-email/42/abc"},
		{"escaped", "password.reset", map[string]string{"token": "a/b c"}, "/reset-password/a%2Fb%20c"},
		{"leftovers become query", "password.reset", map[string]string{"token": "t", "email": "a@b.c"}, "/reset-password/t?email=a%40b.c"},
		{"rest wildcard keeps slashes", "build", map[string]string{"path": "assets/app.js"}, "/build/assets/app.js"},
	}

	for _, tt := range tests {
		got, err := table.URL(tt.route, tt.params)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := table.URL("nope", nil)
	require.ErrorIs(t, err, ErrUnknownRoute)

	_, err = table.URL("verification.verify", map[string]string{"id": "42"})
	require.ErrorIs(t, err, ErrMissingParam)
}

func TestRoutesAndPrint(t *testing.T) {
	t.Parallel()

	noop := (&counter{}).handle

	table := NewTable(plainErrorPage)
	require.NoError(t, table.Get("/", noop, Options{Name: "home"}))
	require.NoError(t, table.Get("/dashboard", noop, Options{
		Name:  "dashboard",
		Gates: []gate.Gate{gate.Authenticate(), gate.EnsureEmailVerified()},
	}))

	routes := table.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, RouteInfo{Method: "GET", Path: "/dashboard", Name: "dashboard", Gates: []string{"auth", "verified"}}, routes[1])

	manifest := table.Manifest()
	assert.Equal(t, ManifestRoute{URI: "/", Methods: []string{"GET", "HEAD"}}, manifest["home"])
	assert.Equal(t, "dashboard", manifest["dashboard"].URI)

	var buf bytes.Buffer
	require.NoError(t, PrintRoutes(&buf, table))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "METHOD"))
	assert.Contains(t, lines[2], "auth, verified")
}
