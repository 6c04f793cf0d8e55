// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package request_context provides per-request state management for HTTP handlers.

This package is separate because Go disallows a cyclic import graph.
*/
package request_context

import (
	"context"
	"net/http"

	"golang.org/x/text/language"

	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/idgen"
	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/core/users"
)

// RequestContext carries request-scoped data through the middleware chain.
type RequestContext struct {
	// RequestID is an identifier for tracing requests.
	RequestID string

	// Holds any critical error encountered during request processing.
	//
	// Populated by middleware.CatchError when handlers return errors.
	RequestError error

	// HTTP status code to be sent in the response. Defaults to 200 OK.
	StatusCode int

	// RouteName is the name of the matched route, empty if nothing matched.
	RouteName string

	// Locale negotiated from Accept-Language against the configured locales.
	Locale language.Tag

	// Session and User are nil for guests.
	Session *authenticated.Session
	User    *users.User

	// Flash left by the previous request, already removed from the client.
	Flash untrusted.Flash
}

// requestContextKeyType defines a unique type for a RequestContext key.
type requestContextKeyType struct{}

var requestContextKey = requestContextKeyType{}

// Locales negotiates a response locale among the ones an instance supports.
type Locales struct {
	supported []language.Tag
	matcher   language.Matcher
}

// NewLocales returns a negotiator for supported. The first tag is the fallback.
func NewLocales(supported []language.Tag) *Locales {
	if len(supported) == 0 {
		supported = []language.Tag{language.English}
	}

	return &Locales{supported: supported, matcher: language.NewMatcher(supported)}
}

// Match picks the supported locale closest to an Accept-Language header.
func (l *Locales) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return l.supported[0]
	}

	_, index, _ := l.matcher.Match(tags...)

	return l.supported[index]
}

// WithRequestContext initializes a new request context and attaches it to
// the parent context.
//
// locales may be nil, in which case the locale is English.
func WithRequestContext(ctx context.Context, r *http.Request, locales *Locales) context.Context {
	rc := RequestContext{
		RequestID:  idgen.Make(),
		StatusCode: http.StatusOK,
		Locale:     language.English,
	}

	if locales != nil {
		rc.Locale = locales.Match(r.Header.Get("Accept-Language"))
	}

	return context.WithValue(ctx, requestContextKey, &rc)
}

// FromContext extracts the RequestContext from a context, always returning
// a valid pointer.
//
// If no context is found, returns a zero-value instance.
func FromContext(ctx context.Context) *RequestContext {
	if v := ctx.Value(requestContextKey); v != nil {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}

	return &RequestContext{Locale: language.English}
}

// FromRequest is a convenience wrapper for extracting RequestContext
// directly from HTTP requests.
func FromRequest(r *http.Request) *RequestContext {
	return FromContext(r.Context())
}
