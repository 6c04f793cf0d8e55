// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package inertia renders pages for an Inertia.js front end.

A page is a component name plus props. The first visit receives an HTML
document whose root element carries the page object as JSON; later visits made
by the client library send X-Inertia and receive the page object directly.
*/
package inertia

import (
	"net/http"
	"strings"
)

// Protocol headers.
const (
	HeaderInertia          = "X-Inertia"
	HeaderVersion          = "X-Inertia-Version"
	HeaderLocation         = "X-Inertia-Location"
	HeaderPartialComponent = "X-Inertia-Partial-Component"
	HeaderPartialData      = "X-Inertia-Partial-Data"
	HeaderPartialExcept    = "X-Inertia-Partial-Except"
)

// Page is the page object exchanged with the client.
type Page struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
	URL       string         `json:"url"`
	Version   string         `json:"version"`
}

// Props are the data handed to a page component.
type Props map[string]any

// LazyProp is evaluated only if the prop is sent.
type LazyProp func() (any, error)

// OptionalProp is left out of full page loads and only sent when a partial
// reload names it.
type OptionalProp func() (any, error)

// IsInertiaRequest reports whether r was made by the client library.
func IsInertiaRequest(r *http.Request) bool {
	return r.Header.Get(HeaderInertia) == "true"
}

// addVary adds X-Inertia to the Vary header once.
func addVary(h http.Header) {
	for _, v := range h.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(field), HeaderInertia) {
				return
			}
		}
	}

	h.Add("Vary", HeaderInertia)
}

func splitHeader(r *http.Request, name string) []string {
	raw := r.Header.Get(name)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")

	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
