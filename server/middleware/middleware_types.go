// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import "net/http"

type Middleware func(w http.ResponseWriter, r *http.Request, next http.Handler)

func Wrap(m Middleware, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m(w, r, next)
	}
}

// HandlerFunc is a route handler that may fail.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error
