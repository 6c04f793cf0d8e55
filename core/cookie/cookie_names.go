// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
This package defines the cookie names used by this application.
*/
package cookie

type CookieName string

// Cookie names defined as constants.
const (
	// paseto v4.public token carrying the signed-in user
	SessionCookie CookieName = "Session"

	// one-shot validation errors and status messages
	FlashCookie CookieName = "Flash"

	// double-submit CSRF token, read by the front-end HTTP client
	XSRFCookie CookieName = "XSRF-TOKEN"

	// light, dark or system; written by the appearance settings page
	AppearanceCookie CookieName = "Appearance"
)

// AllCookieNames lists every cookie this application may set.
var AllCookieNames = []CookieName{
	SessionCookie,
	FlashCookie,
	XSRFCookie,
	AppearanceCookie,
}

// IsHttpOnly reports whether a cookie must be hidden from scripts.
//
// The XSRF token and the appearance preference are read client-side.
func IsHttpOnly(name CookieName) bool {
	switch name {
	case XSRFCookie, AppearanceCookie:
		return false
	default:
		return true
	}
}
