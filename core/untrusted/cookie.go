// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package untrusted

import (
	"net/http"
	"net/url"
	"time"

	"codeberg.org/refill/refill/core/cookie"
	"codeberg.org/refill/refill/server/utils"
)

// SameSite=Lax allows cookies on top-level navigations, preventing authentication issues
// when users arrive from external links (Strict would require a page refresh).
const CookieSameSite = http.SameSiteLaxMode

// Preference cookies expire a year after they are set.
const cookieMaxAge = 365 * 24 * time.Hour

// Clear a cookie by setting its expiration date to this
var cookieExpireDelete = time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC)

func createCookieUnencoded(name cookie.CookieName, value string, expires time.Time, isSecure bool) http.Cookie {
	return http.Cookie{
		Name:     string(name),
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   isSecure,
		HttpOnly: cookie.IsHttpOnly(name),
		SameSite: CookieSameSite,
	}
}

func GetCookie(r *http.Request, name cookie.CookieName) string {
	cookie, err := r.Cookie(string(name))
	if err != nil {
		return ""
	}

	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}

	return value
}

// SetCookie stores a long-lived preference cookie.
func SetCookie(w http.ResponseWriter, r *http.Request, name cookie.CookieName, value string) {
	SetCookieFor(w, r, name, value, cookieMaxAge)
}

// SetCookieFor stores a cookie that expires after ttl.
//
// A zero ttl produces a browser-session cookie. An empty value clears the cookie.
func SetCookieFor(w http.ResponseWriter, r *http.Request, name cookie.CookieName, value string, ttl time.Duration) {
	if value == "" {
		ClearCookie(w, r, name)

		return
	}

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	cookie := createCookieUnencoded(
		name, url.QueryEscape(value),
		expires,
		utils.IsConnectionSecure(r))
	http.SetCookie(w, &cookie)
}

func ClearCookie(w http.ResponseWriter, r *http.Request, name cookie.CookieName) {
	cookie := createCookieUnencoded(
		name, "",
		cookieExpireDelete,
		utils.IsConnectionSecure(r))
	cookie.MaxAge = -1
	http.SetCookie(w, &cookie)
}

func ClearAllCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range cookie.AllCookieNames {
		ClearCookie(w, r, name)
	}
}
