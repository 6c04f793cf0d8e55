// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package gate

import (
	"net/http"
	"time"

	"codeberg.org/refill/refill/server/request_context"
)

// Route names the session gates redirect to.
const (
	LoginRoute              = "login"
	VerificationNoticeRoute = "verification.notice"
	HomeRoute               = "dashboard"
	ConfirmPasswordRoute    = "password.confirm"
)

type authenticate struct{}

// Authenticate requires a signed-in user. Guests are sent to the login page.
func Authenticate() Gate { return authenticate{} }

func (authenticate) Name() string { return "auth" }

func (authenticate) Check(r *http.Request) error {
	if request_context.FromRequest(r).User != nil {
		return nil
	}

	return &RedirectError{Route: LoginRoute, Query: intended(r)}
}

type ensureEmailVerified struct{}

// EnsureEmailVerified requires a user with a verified email address.
func EnsureEmailVerified() Gate { return ensureEmailVerified{} }

func (ensureEmailVerified) Name() string { return "verified" }

func (ensureEmailVerified) Check(r *http.Request) error {
	u := request_context.FromRequest(r).User
	if u != nil && u.Verified() {
		return nil
	}

	return &RedirectError{Route: VerificationNoticeRoute}
}

type redirectIfAuthenticated struct{}

// RedirectIfAuthenticated keeps signed-in users away from guest pages such as login.
func RedirectIfAuthenticated() Gate { return redirectIfAuthenticated{} }

func (redirectIfAuthenticated) Name() string { return "guest" }

func (redirectIfAuthenticated) Check(r *http.Request) error {
	if request_context.FromRequest(r).User == nil {
		return nil
	}

	return &RedirectError{Route: HomeRoute}
}

type requirePassword struct {
	timeout time.Duration
	now     func() time.Time
}

// RequirePassword requires the password to have been confirmed within timeout.
func RequirePassword(timeout time.Duration) Gate {
	return requirePassword{timeout: timeout, now: time.Now}
}

func (requirePassword) Name() string { return "password.confirm" }

func (g requirePassword) Check(r *http.Request) error {
	session := request_context.FromRequest(r).Session
	if session == nil {
		return &RedirectError{Route: LoginRoute, Query: intended(r)}
	}

	confirmed := session.PasswordConfirmedAt
	if !confirmed.IsZero() && g.now().Sub(confirmed) < g.timeout {
		return nil
	}

	return &RedirectError{Route: ConfirmPasswordRoute, Query: intended(r)}
}
