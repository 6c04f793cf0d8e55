// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"fmt"
	"net/http"
	"time"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/cookie"
	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/core/users"
)

// signIn starts a session for u.
func (app *App) signIn(w http.ResponseWriter, r *http.Request, u *users.User, remember bool) error {
	return app.writeSession(w, r, authenticated.Session{UserID: u.ID, Remember: remember})
}

// writeSession (re)issues the session cookie.
//
// Remembered sessions outlive the browser; others end with it or after
// session.lifetime, whichever comes first.
func (app *App) writeSession(w http.ResponseWriter, r *http.Request, s authenticated.Session) error {
	lifetime := config.Global.Session.Lifetime

	var ttl time.Duration

	if s.Remember {
		lifetime = config.Global.Session.RememberLifetime
		ttl = lifetime
	}

	token, err := app.Keys.IssueSession(s, lifetime)
	if err != nil {
		return fmt.Errorf("failed to issue session: %w", err)
	}

	untrusted.SetCookieFor(w, r, cookie.SessionCookie, token, ttl)

	// a fresh CSRF token is handed out on the next response
	untrusted.ClearCookie(w, r, cookie.XSRFCookie)

	return nil
}

// signOut ends the session.
func signOut(w http.ResponseWriter, r *http.Request) {
	untrusted.ClearCookie(w, r, cookie.SessionCookie)
	untrusted.ClearCookie(w, r, cookie.XSRFCookie)
}
