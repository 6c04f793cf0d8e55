// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/cookie"
	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/request_context"
)

func newFixture(t *testing.T) (*authenticated.Validator, *users.MemoryStore, *users.User) {
	t.Helper()

	store := users.NewMemoryStore()
	u := &users.User{Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, store.Create(t.Context(), u))

	return authenticated.NewValidator(), store, u
}

func serve(t *testing.T, mw middleware.Middleware, r *http.Request) (*httptest.ResponseRecorder, *request_context.RequestContext) {
	t.Helper()

	var rc *request_context.RequestContext

	handler := middleware.Wrap(mw, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc = request_context.FromRequest(r)

		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, r)

	require.NotNil(t, rc, "next handler must be called")

	return rr, rc
}

func TestGuestRequest(t *testing.T) {
	t.Parallel()

	keys, store, _ := newFixture(t)

	rr, rc := serve(t, New(keys, store, nil), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rc.RequestID)
	assert.Equal(t, http.StatusOK, rc.StatusCode)
	assert.Nil(t, rc.User)
	assert.NoError(t, rc.RequestError)
}

func TestUniqueRequestIDs(t *testing.T) {
	t.Parallel()

	keys, store, _ := newFixture(t)
	mw := New(keys, store, nil)

	seen := make(map[string]bool)

	for range 3 {
		_, rc := serve(t, mw, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.False(t, seen[rc.RequestID], "duplicate request id %s", rc.RequestID)

		seen[rc.RequestID] = true
	}
}

func TestSessionResolvesUser(t *testing.T) {
	t.Parallel()

	keys, store, u := newFixture(t)

	token, err := keys.IssueSession(authenticated.Session{UserID: u.ID}, time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(&http.Cookie{Name: string(cookie.SessionCookie), Value: token})

	rr, rc := serve(t, New(keys, store, nil), r)

	require.NotNil(t, rc.User)
	assert.Equal(t, u.ID, rc.User.ID)
	require.NotNil(t, rc.Session)
	assert.Equal(t, u.ID, rc.Session.UserID)
	assert.Empty(t, rr.Result().Cookies(), "valid session must not be touched")
}

func TestInvalidSessionIsCleared(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token func(t *testing.T, keys *authenticated.Validator) string
	}{
		{
			name: "garbage",
			token: func(*testing.T, *authenticated.Validator) string {
				return "v4.public.garbage"
			},
		},
		{
			name: "foreign key",
			token: func(t *testing.T, _ *authenticated.Validator) string {
				t.Helper()

				token, err := authenticated.NewValidator().IssueSession(authenticated.Session{UserID: uuid.New()}, time.Hour)
				require.NoError(t, err)

				return token
			},
		},
		{
			name: "deleted user",
			token: func(t *testing.T, keys *authenticated.Validator) string {
				t.Helper()

				token, err := keys.IssueSession(authenticated.Session{UserID: uuid.New()}, time.Hour)
				require.NoError(t, err)

				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			keys, store, _ := newFixture(t)

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.AddCookie(&http.Cookie{Name: string(cookie.SessionCookie), Value: tt.token(t, keys)})

			rr, rc := serve(t, New(keys, store, nil), r)

			assert.Nil(t, rc.User)

			cookies := rr.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, string(cookie.SessionCookie), cookies[0].Name)
			assert.Negative(t, cookies[0].MaxAge)
		})
	}
}

func TestFlashIsTaken(t *testing.T) {
	t.Parallel()

	keys, store, _ := newFixture(t)

	setter := httptest.NewRecorder()
	untrusted.SetFlash(setter, httptest.NewRequest(http.MethodPost, "/login", nil), untrusted.Flash{
		Errors: map[string]string{"email": "required"},
	})

	r := httptest.NewRequest(http.MethodGet, "/login", nil)
	for _, c := range setter.Result().Cookies() {
		r.AddCookie(c)
	}

	rr, rc := serve(t, New(keys, store, nil), r)

	assert.Equal(t, "required", rc.Flash.Errors["email"])

	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, string(cookie.FlashCookie), cleared[0].Name)
	assert.Negative(t, cleared[0].MaxAge)
}
