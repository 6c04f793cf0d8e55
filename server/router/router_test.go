// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/cookie"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/server/assets"
	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/inertia"
	"codeberg.org/refill/refill/server/routes"
)

const testPassword = "correct horse battery"

func TestMain(m *testing.M) {
	users.HashCost = bcrypt.MinCost

	assets.FS = fstest.MapFS{
		"build/app.js": {Data: []byte("console.log('refill')")},
		"robots.txt":   {Data: []byte("User-agent: *\n")},
	}

	config.Global.Basic.AppName = "Refill"
	config.Global.Basic.AppURL = "http://refill.test"
	config.Global.Session.Lifetime = 2 * time.Hour
	config.Global.Session.RememberLifetime = 30 * 24 * time.Hour
	config.Global.Session.PasswordTimeout = 3 * time.Hour
	config.Global.Session.ResetTokenLifetime = time.Hour
	config.Global.Session.VerificationLinkLifetime = time.Hour
	config.Global.Instance.FileServerCacheID = "test-cache-id"

	os.Exit(m.Run())
}

type sentLink struct {
	kind, email, link string
}

type recordingNotifier struct {
	mu    sync.Mutex
	links []sentLink
}

func (n *recordingNotifier) record(kind string, u *users.User, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.links = append(n.links, sentLink{kind: kind, email: u.Email, link: link})

	return nil
}

func (n *recordingNotifier) SendPasswordResetLink(_ context.Context, u *users.User, link string) error {
	return n.record("reset", u, link)
}

func (n *recordingNotifier) SendVerificationLink(_ context.Context, u *users.User, link string) error {
	return n.record("verify", u, link)
}

type testApp struct {
	handler  http.Handler
	table    *Table
	app      *routes.App
	store    *users.MemoryStore
	notifier *recordingNotifier
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	limiters, err := gate.NewLimiters(100)
	require.NoError(t, err)

	store := users.NewMemoryStore()
	notifier := &recordingNotifier{}

	app := &routes.App{
		Pages:    inertia.New("v1", "Refill"),
		Users:    store,
		Keys:     authenticated.NewValidator(),
		Notifier: notifier,
	}

	router, err := New(app, limiters)
	require.NoError(t, err)

	return &testApp{handler: router, table: router.Table(), app: app, store: store, notifier: notifier}
}

func (ta *testApp) createUser(t *testing.T, email string, verified bool) *users.User {
	t.Helper()

	u := &users.User{Name: "Ada Lovelace", Email: email}
	require.NoError(t, u.SetPassword(testPassword))

	if verified {
		u.MarkEmailVerified(time.Now())
	}

	require.NoError(t, ta.store.Create(t.Context(), u))

	return u
}

func (ta *testApp) sessionCookie(t *testing.T, u *users.User) *http.Cookie {
	t.Helper()

	token, err := ta.app.Keys.IssueSession(authenticated.Session{UserID: u.ID}, time.Hour)
	require.NoError(t, err)

	return &http.Cookie{Name: string(cookie.SessionCookie), Value: token}
}

// visit makes an Inertia GET request, signed in as u when u is not nil.
func (ta *testApp) visit(t *testing.T, target string, u *users.User) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set(inertia.HeaderInertia, "true")
	r.Header.Set(inertia.HeaderVersion, "v1")

	if u != nil {
		r.AddCookie(ta.sessionCookie(t, u))
	}

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, r)

	return rr
}

func TestCoreRoutes(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	verified := ta.createUser(t, "ada@example.com", true)

	tests := []struct {
		target    string
		user      *users.User
		component string
	}{
		{"/", nil, "index"},
		{"/refill", nil, "refill"},
		{"/dashboard", verified, "Dashboard"},
	}

	for _, tt := range tests {
		rr := ta.visit(t, tt.target, tt.user)

		require.Equal(t, http.StatusOK, rr.Code, tt.target)
		assert.Equal(t, "true", rr.Header().Get(inertia.HeaderInertia), tt.target)

		body := rr.Body.String()
		assert.Equal(t, tt.component, gjson.Get(body, "component").String(), tt.target)
		assert.Equal(t, tt.target, gjson.Get(body, "url").String(), tt.target)
		assert.Equal(t, "Refill", gjson.Get(body, "props.name").String(), tt.target)
	}

	rr := ta.visit(t, "/dashboard", verified)
	assert.Equal(t, "ada@example.com", gjson.Get(rr.Body.String(), "props.auth.user.email").String())
	assert.Equal(t, "dashboard", gjson.Get(rr.Body.String(), "props.routes.dashboard.uri").String())
}

func TestDashboardGates(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	unverified := ta.createUser(t, "grace@example.com", false)

	t.Run("guest", func(t *testing.T) {
		t.Parallel()

		rr := ta.visit(t, "/dashboard", nil)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login?intended=%2Fdashboard", rr.Header().Get("Location"))
		assert.False(t, gjson.Valid(rr.Body.String()) && gjson.Get(rr.Body.String(), "component").Exists(),
			"the dashboard must not be rendered")
	})

	t.Run("unverified", func(t *testing.T) {
		t.Parallel()

		rr := ta.visit(t, "/dashboard", unverified)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/verify-email", rr.Header().Get("Location"))
	})

	t.Run("verification notice", func(t *testing.T) {
		t.Parallel()

		rr := ta.visit(t, "/verify-email", unverified)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "auth/verify-email", gjson.Get(rr.Body.String(), "component").String())
	})
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)

	rr := ta.visit(t, "/nonexistent", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Error", gjson.Get(rr.Body.String(), "component").String())
	assert.Equal(t, int64(http.StatusNotFound), gjson.Get(rr.Body.String(), "props.status").Int())
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestFirstVisitIsHTML(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/refill", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)

	page, ok := doc.Find("#app").Attr("data-page")
	require.True(t, ok)
	assert.Equal(t, "refill", gjson.Get(page, "component").String())

	var xsrf bool

	for _, c := range rr.Result().Cookies() {
		xsrf = xsrf || c.Name == string(cookie.XSRFCookie)
	}

	assert.True(t, xsrf, "the first visit hands out a CSRF token")
}

func TestStaticAssets(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/build/app.js", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "console.log('refill')", rr.Body.String())
	assert.Equal(t, `"test-cache-id"`, rr.Header().Get("ETag"))

	rr = httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/build/missing.js", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)

	for _, target := range []string{"/build", "/build/"} {
		rr, hops := ta.follow(t, target)

		assert.Equal(t, http.StatusNotFound, rr.Code, target)
		assert.LessOrEqual(t, hops, 1, target)
	}
}

// follow GETs target and the redirects it leads to, up to a fixed limit, and
// returns the last response with the number of redirects taken.
func (ta *testApp) follow(t *testing.T, target string) (*httptest.ResponseRecorder, int) {
	t.Helper()

	const maxHops = 5

	for hops := 0; ; hops++ {
		rr := httptest.NewRecorder()
		ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

		if rr.Code < 300 || rr.Code >= 400 {
			return rr, hops
		}

		require.Less(t, hops, maxHops, "redirect loop at %s", target)

		target = rr.Header().Get("Location")
		require.NotEmpty(t, target, "redirect without Location")
	}
}

func TestProtocolMiddleware(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)

	t.Run("stale version", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/refill", nil)
		r.Header.Set(inertia.HeaderInertia, "true")
		r.Header.Set(inertia.HeaderVersion, "old")

		rr := httptest.NewRecorder()
		ta.handler.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "/refill", rr.Header().Get(inertia.HeaderLocation))
	})

	t.Run("trailing slash", func(t *testing.T) {
		t.Parallel()

		rr := ta.visit(t, "/refill/", nil)

		assert.Equal(t, http.StatusPermanentRedirect, rr.Code)
		assert.Equal(t, "/refill", rr.Header().Get("Location"))
	})

	t.Run("missing CSRF token", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.c"}`))
		r.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		ta.handler.ServeHTTP(rr, r)

		assert.Equal(t, 419, rr.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/refill", nil)
		r.Header.Set("X-XSRF-TOKEN", "token")
		r.AddCookie(&http.Cookie{Name: string(cookie.XSRFCookie), Value: "token"})

		rr := httptest.NewRecorder()
		ta.handler.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("method not allowed without CSRF token", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/refill", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
	})

	t.Run("unknown path without CSRF token", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		ta.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/nonexistent", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestLoginFlow(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	ta.createUser(t, "ada@example.com", true)

	body := `{"email":"ADA@example.com","password":"` + testPassword + `","intended":"/settings/profile"}`

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set(inertia.HeaderInertia, "true")
	r.Header.Set(inertia.HeaderVersion, "v1")
	r.Header.Set("X-XSRF-TOKEN", "token")
	r.AddCookie(&http.Cookie{Name: string(cookie.XSRFCookie), Value: "token"})

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, r)

	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/settings/profile", rr.Header().Get("Location"))

	var session *http.Cookie

	for _, c := range rr.Result().Cookies() {
		if c.Name == string(cookie.SessionCookie) {
			session = c
		}
	}

	require.NotNil(t, session, "a session cookie is issued")

	next := httptest.NewRequest(http.MethodGet, "/settings/profile", nil)
	next.Header.Set(inertia.HeaderInertia, "true")
	next.Header.Set(inertia.HeaderVersion, "v1")
	next.AddCookie(session)

	rr = httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, next)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "settings/profile", gjson.Get(rr.Body.String(), "component").String())
}

func TestGuestPagesRedirectSignedInUsers(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	u := ta.createUser(t, "ada@example.com", true)

	rr := ta.visit(t, "/login", u)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
}

func TestSettingsRedirect(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)
	u := ta.createUser(t, "ada@example.com", true)

	rr := ta.visit(t, "/settings", u)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/settings/profile", rr.Header().Get("Location"))
}

func TestFullTable(t *testing.T) {
	t.Parallel()

	ta := newTestApp(t)

	names := map[string]RouteInfo{}
	for _, route := range ta.table.Routes() {
		names[route.Name] = route
	}

	for _, name := range []string{
		"home", "refill.index", "dashboard",
		"settings", "profile.edit", "profile.update", "profile.destroy",
		"password.edit", "password.update", "appearance",
		"register", "login", "password.request", "password.email", "password.reset", "password.store",
		"verification.notice", "verification.verify", "verification.send", "password.confirm", "logout",
	} {
		assert.Contains(t, names, name)
	}

	assert.Equal(t, []string{"auth", "verified"}, names["dashboard"].Gates)
	assert.Equal(t, []string{"auth", "password.confirm"}, names["profile.destroy"].Gates)
	assert.Equal(t, []string{"auth", "signed", "throttle:6,1m"}, names["verification.verify"].Gates)
	assert.Equal(t, "/verify-email/{id}/{hash}", names["verification.verify"].Path)

	// the sealed table rejects late additions
	require.ErrorIs(t, ta.table.Get("/late", ta.app.Page("late"), Options{Name: "late"}), ErrSealed)
}
