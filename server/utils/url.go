// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ParseURL parses an absolute URL from the configuration and drops any
// trailing slash from its path. what names the setting in error messages.
func ParseURL(raw, what string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s URL: %w", what, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf(
			"%s URL is invalid: %q. Please specify a complete URL with scheme and host, e.g. https://example.com",
			what, raw)
	}

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u, nil
}

// QueryParam returns the first value of the query parameter name.
func QueryParam(r *http.Request, name string) string {
	return r.URL.Query().Get(name)
}

// FormValue returns the first value of the form field name, body before query.
// Malformed bodies read as empty.
func FormValue(r *http.Request, name string) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}

	return r.FormValue(name)
}

// PathVar returns the path wildcard name of the matched route.
func PathVar(r *http.Request, name string) string {
	return r.PathValue(name)
}

// SanitizeReturnPath returns s when it is a path on this origin, with its
// query, and "" otherwise. Used for ?intended= and referrer redirects.
func SanitizeReturnPath(s string) string {
	s = strings.TrimSpace(s)

	// "//host" and "/\host" are treated as scheme-relative by browsers
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return ""
	}

	if strings.ContainsFunc(s, func(c rune) bool { return c < ' ' || c == 0x7f }) {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return ""
	}

	return s
}
