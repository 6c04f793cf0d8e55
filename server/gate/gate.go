// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package gate holds the per-route checks that run before a handler.

A gate either passes (nil) or fails with a [*RedirectError], which the router
turns into a redirect to a named route, or with any other error, usually a
[*middleware.StatusError], which is rendered by middleware.CatchError. Gates
do not write responses themselves.
*/
package gate

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/refill/refill/server/middleware"
)

// Gate is a named precondition of a route.
type Gate interface {
	Name() string
	Check(r *http.Request) error
}

// Names lists the names of gates in order.
func Names(gates []Gate) []string {
	names := make([]string, len(gates))
	for i, g := range gates {
		names[i] = g.Name()
	}

	return names
}

// RedirectError asks the router to redirect to a named route.
type RedirectError struct {
	Route string
	Query url.Values
}

func (e *RedirectError) Error() string {
	return "redirect to route " + strconv.Quote(e.Route)
}

// intended returns the query carrying the page to go back to after the redirect target.
//
// For non-GET requests the same-origin referrer is used, since the request itself
// cannot be replayed by a redirect.
func intended(r *http.Request) url.Values {
	target := ""

	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		target = r.URL.RequestURI()
	} else if ref, err := url.Parse(r.Referer()); err == nil && (ref.Host == "" || ref.Host == r.Host) {
		target = ref.RequestURI()
	}

	if target == "" || target == "/" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return nil
	}

	return url.Values{"intended": {target}}
}

func retryAfter(d time.Duration) http.Header {
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return http.Header{"Retry-After": {strconv.Itoa(seconds)}}
}

func tooManyAttempts(d time.Duration) *middleware.StatusError {
	err := middleware.NewStatusError(http.StatusTooManyRequests,
		fmt.Errorf("Too many attempts. Please try again in %s.", d.Round(time.Second))) //nolint:staticcheck
	err.Header = retryAfter(d)

	return err
}
