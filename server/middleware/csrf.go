// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"codeberg.org/refill/refill/core/cookie"
	"codeberg.org/refill/refill/core/idgen"
	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/server/utils"
)

// StatusPageExpired is sent when a form or XHR carries a stale CSRF token.
const StatusPageExpired = 419

const (
	csrfTokenBytes = 32
	csrfFormField  = "_token"
)

// ErrTokenMismatch is returned when the CSRF token of an unsafe request does not match the cookie.
var ErrTokenMismatch = &StatusError{Status: StatusPageExpired, Err: errors.New("CSRF token mismatch")}

// NewCSRF returns a middleware implementing the double-submit cookie pattern.
//
// Every response carries an XSRF-TOKEN cookie readable by scripts. Unsafe
// requests must echo it in the X-XSRF-TOKEN or X-CSRF-TOKEN header, or in
// the _token form field. Mismatches are handed to reject.
func NewCSRF(reject http.Handler) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		token := untrusted.GetCookie(r, cookie.XSRFCookie)

		if !utils.IsSafeMethod(r.Method) && (token == "" || !tokensEqual(token, submittedToken(r))) {
			reject.ServeHTTP(w, r)

			return
		}

		if token == "" {
			token = idgen.Secret(csrfTokenBytes)
		}

		// browser-session cookie, re-sent with every response
		untrusted.SetCookieFor(w, r, cookie.XSRFCookie, token, 0)

		next.ServeHTTP(w, r)
	}
}

func submittedToken(r *http.Request) string {
	if v := r.Header.Get("X-XSRF-TOKEN"); v != "" {
		return v
	}

	if v := r.Header.Get("X-CSRF-TOKEN"); v != "" {
		return v
	}

	return utils.FormValue(r, csrfFormField)
}

func tokensEqual(a, b string) bool {
	return b != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
