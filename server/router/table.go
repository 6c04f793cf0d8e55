// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/request_context"
)

var (
	ErrDuplicateName  = errors.New("duplicate route name")
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrSealed         = errors.New("route table is sealed")
	ErrRouteConflict  = errors.New("conflicting route patterns")
	ErrInvalidRoute   = errors.New("invalid route")
	ErrUnknownRoute   = errors.New("unknown route name")
	ErrMissingParam   = errors.New("missing route parameter")

	errNotFound         = middleware.NewStatusError(http.StatusNotFound, nil)
	errNotSealed        = middleware.NewStatusError(http.StatusServiceUnavailable, errors.New("route table is not sealed yet"))
	errMethodNotAllowed = middleware.NewStatusError(http.StatusMethodNotAllowed, nil)
)

// Route is a registered route. It is never modified after registration.
type Route struct {
	Method string
	Path   string
	Name   string
	Gates  []gate.Gate

	handler middleware.HandlerFunc
}

// Options are the optional parts of a route.
type Options struct {
	Name  string
	Gates []gate.Gate
}

// Table maps method and path to a handler and the gates guarding it.
//
// A table is built once at startup, then sealed. Registration is only allowed
// before Seal and dispatch only after it, so serving needs no locking.
type Table struct {
	mu     sync.Mutex
	sealed atomic.Bool

	routes   []*Route
	byName   map[string]*Route
	byMethod map[string]*Route

	// registration errors, reported together by Seal
	errs []error

	mux         *http.ServeMux
	entries     map[string]*entry
	renderError middleware.ErrorRenderer
}

// NewTable returns an empty table. renderError draws the error page for
// failed gates, failed handlers and unmatched requests.
func NewTable(renderError middleware.ErrorRenderer) *Table {
	return &Table{
		byName:      map[string]*Route{},
		byMethod:    map[string]*Route{},
		mux:         http.NewServeMux(),
		renderError: renderError,
	}
}

// Register adds a route.
//
// The returned error is also remembered and reported again by Seal, so route
// definitions may ignore it.
func (t *Table) Register(method, path string, handler middleware.HandlerFunc, opts Options) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.register(method, path, handler, opts)
	if err != nil && !errors.Is(err, ErrSealed) {
		t.errs = append(t.errs, err)
	}

	return err
}

func (t *Table) register(method, path string, handler middleware.HandlerFunc, opts Options) error {
	if t.sealed.Load() {
		return fmt.Errorf("%w: %s %s", ErrSealed, method, path)
	}

	if method == "" || !strings.HasPrefix(path, "/") || handler == nil {
		return fmt.Errorf("%w: %q %q", ErrInvalidRoute, method, path)
	}

	if opts.Name == "" {
		return fmt.Errorf("%w: %s %s has no name", ErrInvalidRoute, method, path)
	}

	path = cleanPath(path)
	key := method + " " + path

	if existing, ok := t.byName[opts.Name]; ok {
		return fmt.Errorf("%w: %q is taken by %s %s", ErrDuplicateName, opts.Name, existing.Method, existing.Path)
	}

	if existing, ok := t.byMethod[key]; ok {
		return fmt.Errorf("%w: %s is already named %q", ErrDuplicateRoute, key, existing.Name)
	}

	route := &Route{
		Method:  method,
		Path:    path,
		Name:    opts.Name,
		Gates:   slices.Clone(opts.Gates),
		handler: handler,
	}

	t.routes = append(t.routes, route)
	t.byName[route.Name] = route
	t.byMethod[key] = route

	return nil
}

// Get registers a GET route. HEAD requests are served by it too.
func (t *Table) Get(path string, handler middleware.HandlerFunc, opts Options) error {
	return t.Register(http.MethodGet, path, handler, opts)
}

// Group returns a registrar that prefixes paths and prepends gates.
func (t *Table) Group(prefix string, gates ...gate.Gate) *Group {
	return &Group{table: t, prefix: strings.TrimSuffix(prefix, "/"), gates: gates}
}

// Seal ends registration. It fails if any registration failed; the table then
// keeps answering 503.
func (t *Table) Seal() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed.Load() {
		return ErrSealed
	}

	errs := slices.Clone(t.errs)

	mux := http.NewServeMux()
	entries := make(map[string]*entry, len(t.routes))

	for _, route := range t.routes {
		e := &entry{t.routeHandler(route)}
		if err := handleRecovered(mux, route.pattern(), e); err != nil {
			errs = append(errs, err)
		}

		entries[route.pattern()] = e
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	t.mux = mux
	t.entries = entries
	t.sealed.Store(true)

	return nil
}

// Sealed reports whether the table is serving.
func (t *Table) Sealed() bool {
	return t.sealed.Load()
}

// http.ServeMux panics on conflicting patterns, e.g. "GET /a/{x}" and "GET /{y}/b".
func handleRecovered(mux *http.ServeMux, pattern string, handler http.Handler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRouteConflict, p)
		}
	}()

	mux.Handle(pattern, handler)

	return nil
}

// ServeHTTP dispatches r.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !t.sealed.Load() {
		t.fail(w, r, errNotSealed)

		return
	}

	// mux.Handler does not fill in r.PathValue, so matched requests go
	// through the mux once more.
	if t.lookup(r) != nil {
		t.mux.ServeHTTP(w, r)

		return
	}

	// The mux answers 405 itself when the path exists with another method.
	// Run it against a probe to tell that apart from 404.
	probe := &statusRecorder{header: http.Header{}, status: http.StatusOK}
	t.mux.ServeHTTP(probe, r)

	if probe.status == http.StatusMethodNotAllowed {
		if allow := probe.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}

		t.fail(w, r, errMethodNotAllowed)

		return
	}

	t.fail(w, r, errNotFound)
}

// Matches reports whether r would reach a route handler, as opposed to a
// 404, 405 or 503 response.
func (t *Table) Matches(r *http.Request) bool {
	return t.sealed.Load() && t.lookup(r) != nil
}

// lookup returns the route entry serving r, or nil.
//
// For /tree the mux reports the pattern of "/tree/{rest...}" along with its
// own redirect to /tree/, which NormalizeURL would send straight back. Only
// the handler registered for the pattern counts as a match.
func (t *Table) lookup(r *http.Request) *entry {
	handler, pattern := t.mux.Handler(r)

	e, ok := t.entries[pattern]
	if !ok || handler != http.Handler(e) {
		return nil
	}

	return e
}

func (t *Table) fail(w http.ResponseWriter, r *http.Request, err error) {
	middleware.CatchError(func(http.ResponseWriter, *http.Request) error {
		return err
	}, t.renderError).ServeHTTP(w, r)
}

// routeHandler runs the gates of route, then its handler.
func (t *Table) routeHandler(route *Route) http.Handler {
	return middleware.CatchError(func(w http.ResponseWriter, r *http.Request) error {
		request_context.FromRequest(r).RouteName = route.Name

		for _, g := range route.Gates {
			err := g.Check(r)
			if err == nil {
				continue
			}

			var redirect *gate.RedirectError
			if errors.As(err, &redirect) {
				return t.redirect(w, r, redirect)
			}

			return err
		}

		return route.handler(w, r)
	}, t.renderError)
}

func (t *Table) redirect(w http.ResponseWriter, r *http.Request, target *gate.RedirectError) error {
	location, err := t.URL(target.Route, nil)
	if err != nil {
		return fmt.Errorf("gate redirect: %w", err)
	}

	if len(target.Query) > 0 {
		location += "?" + target.Query.Encode()
	}

	http.Redirect(w, r, location, http.StatusFound)

	return nil
}

// URL builds the path of the named route.
//
// params fill the {name} segments of the pattern; those left over are
// appended as the query string.
func (t *Table) URL(name string, params map[string]string) (string, error) {
	if !t.sealed.Load() {
		t.mu.Lock()
		defer t.mu.Unlock()
	}

	route, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}

	used := map[string]bool{}
	segments := strings.Split(route.Path, "/")

	for i, segment := range segments {
		if !strings.HasPrefix(segment, "{") || !strings.HasSuffix(segment, "}") {
			continue
		}

		param := strings.Trim(segment, "{}")
		rest := strings.HasSuffix(param, "...")
		param = strings.TrimSuffix(param, "...")

		value, ok := params[param]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: %q needs %q", ErrMissingParam, name, param)
		}

		used[param] = true

		if rest {
			parts := strings.Split(value, "/")
			for j := range parts {
				parts[j] = url.PathEscape(parts[j])
			}

			segments[i] = strings.Join(parts, "/")
		} else {
			segments[i] = url.PathEscape(value)
		}
	}

	location := strings.Join(segments, "/")

	query := url.Values{}

	for key, value := range params {
		if !used[key] {
			query.Set(key, value)
		}
	}

	if len(query) > 0 {
		location += "?" + query.Encode()
	}

	return location, nil
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method string   `json:"method"`
	Path   string   `json:"path"`
	Name   string   `json:"name"`
	Gates  []string `json:"gates,omitempty"`
}

// Routes lists the registered routes in registration order.
func (t *Table) Routes() []RouteInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	infos := make([]RouteInfo, len(t.routes))
	for i, route := range t.routes {
		infos[i] = RouteInfo{
			Method: route.Method,
			Path:   route.Path,
			Name:   route.Name,
			Gates:  gate.Names(route.Gates),
		}
	}

	return infos
}

// pattern is the http.ServeMux pattern of the route.
func (route *Route) pattern() string {
	if route.Path == "/" {
		// "/" alone would match every path
		return route.Method + " /{$}"
	}

	return route.Method + " " + route.Path
}

// cleanPath drops trailing slashes, which NormalizeURL strips from requests.
func cleanPath(path string) string {
	if path == "/" {
		return path
	}

	return "/" + strings.Trim(path, "/")
}

// entry is the handler of one route as registered with the mux. Pointer
// identity tells it apart from handlers the mux makes up itself.
type entry struct {
	http.Handler
}

// statusRecorder is used to probe mux responses.
type statusRecorder struct {
	header http.Header
	status int
}

func (r *statusRecorder) Header() http.Header       { return r.header }
func (r *statusRecorder) Write([]byte) (int, error) { return 0, nil }
func (r *statusRecorder) WriteHeader(status int)    { r.status = status }

// Group registers routes under a common path prefix and gates.
type Group struct {
	table  *Table
	prefix string
	gates  []gate.Gate
}

// Register adds a route. The group's gates run before opts.Gates.
func (g *Group) Register(method, path string, handler middleware.HandlerFunc, opts Options) error {
	opts.Gates = append(slices.Clone(g.gates), opts.Gates...)

	full := g.prefix + path
	if full == "" {
		full = "/"
	}

	return g.table.Register(method, full, handler, opts)
}

// Get registers a GET route.
func (g *Group) Get(path string, handler middleware.HandlerFunc, opts Options) error {
	return g.Register(http.MethodGet, path, handler, opts)
}

// Post registers a POST route.
func (g *Group) Post(path string, handler middleware.HandlerFunc, opts Options) error {
	return g.Register(http.MethodPost, path, handler, opts)
}

// Group nests a group.
func (g *Group) Group(prefix string, gates ...gate.Gate) *Group {
	return &Group{
		table:  g.table,
		prefix: g.prefix + strings.TrimSuffix(prefix, "/"),
		gates:  append(slices.Clone(g.gates), gates...),
	}
}
