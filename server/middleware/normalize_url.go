// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"strings"
)

// NormalizeURL redirects paths with a trailing slash (except root) to the
// path without it.
//
// Only GET and HEAD are redirected; other methods would lose their body.
func NormalizeURL(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if hasTrailingSlash(r) && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		removeTrailingSlash(w, r)

		return
	}

	next.ServeHTTP(w, r)
}

// hasTrailingSlash checks if a request path has a trailing slash (except root).
func hasTrailingSlash(r *http.Request) bool {
	return r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/")
}

// removeTrailingSlash removes trailing slashes and redirects.
func removeTrailingSlash(w http.ResponseWriter, r *http.Request) {
	target := *r.URL

	// "//host/" must not become the scheme-relative "//host"
	target.Path = "/" + strings.Trim(target.Path, "/")

	// RawPath would otherwise take precedence over the trimmed Path
	target.RawPath = ""

	http.Redirect(w, r, target.RequestURI(), http.StatusPermanentRedirect)
}
