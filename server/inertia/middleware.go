// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package inertia

import (
	"net/http"
)

// Middleware implements the server side of the Inertia protocol.
//
//   - A GET from a client with a stale asset version gets 409 and
//     X-Inertia-Location, forcing a full reload.
//   - A 302 answering PUT, PATCH or DELETE becomes 303, so that the client
//     follows it with GET.
func (rd *Renderer) Middleware(w http.ResponseWriter, r *http.Request, next http.Handler) {
	addVary(w.Header())

	if !IsInertiaRequest(r) {
		next.ServeHTTP(w, r)

		return
	}

	if r.Method == http.MethodGet && r.Header.Get(HeaderVersion) != rd.version {
		w.Header().Set(HeaderLocation, r.URL.RequestURI())
		w.WriteHeader(http.StatusConflict)

		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		w = &seeOtherWriter{ResponseWriter: w}
	}

	next.ServeHTTP(w, r)
}

type seeOtherWriter struct {
	http.ResponseWriter
}

func (s *seeOtherWriter) WriteHeader(code int) {
	if code == http.StatusFound {
		code = http.StatusSeeOther
	}

	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *seeOtherWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
