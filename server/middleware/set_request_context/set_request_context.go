// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package set_request_context attaches a request_context.RequestContext to every request.

It resolves the signed-in user from the session cookie. An invalid cookie, or
one naming a user that no longer exists, is cleared and the request continues
as a guest. A pending flash is moved from its cookie into the context.
*/
package set_request_context

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/cookie"
	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/server/request_context"
)

// SessionParser verifies session cookie values.
type SessionParser interface {
	ParseSession(tainted string) (authenticated.Session, error)
}

// New returns the middleware.
func New(sessions SessionParser, store users.Store, locales *request_context.Locales) func(http.ResponseWriter, *http.Request, http.Handler) {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		r = r.WithContext(request_context.WithRequestContext(r.Context(), r, locales))

		resolveUser(w, r, sessions, store)

		request_context.FromRequest(r).Flash = untrusted.TakeFlash(w, r)

		next.ServeHTTP(w, r)
	}
}

func resolveUser(w http.ResponseWriter, r *http.Request, sessions SessionParser, store users.Store) {
	raw := untrusted.GetCookie(r, cookie.SessionCookie)
	if raw == "" {
		return
	}

	session, err := sessions.ParseSession(raw)
	if err != nil {
		untrusted.ClearCookie(w, r, cookie.SessionCookie)

		return
	}

	u, err := store.ByID(r.Context(), session.UserID)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			log.Error().
				Err(err).
				Str("user_id", session.UserID.String()).
				Msg("Failed to load session user")

			return
		}

		untrusted.ClearCookie(w, r, cookie.SessionCookie)

		return
	}

	rc := request_context.FromRequest(r)
	rc.Session = &session
	rc.User = u
}
