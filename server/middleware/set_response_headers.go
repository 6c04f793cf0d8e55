// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"fmt"
	"maps"
	"net/http"
	"strings"
	"sync/atomic"

	"codeberg.org/refill/refill/config"
)

var (
	// baseHeaders defines the default headers to be set in responses.
	//
	// Refill-Version and Refill-Revision are added dynamically in SetResponseHeaders.
	baseHeaders = http.Header{
		"Referrer-Policy":        {"same-origin"},
		"X-Frame-Options":        {"DENY"},
		"X-Content-Type-Options": {"nosniff"},
		"Permissions-Policy":     {strings.Join(defaultPermissionsPolicy, ", ")},
	}

	baseCSP = strings.Join([]string{
		"base-uri 'self'",
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"font-src 'self'",
		"connect-src 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}, "; ") + ";"

	defaultPermissionsPolicy = []string{
		"accelerometer=()",
		"camera=()",
		"display-capture=()",
		"geolocation=()",
		"gyroscope=()",
		"magnetometer=()",
		"microphone=()",
		"payment=()",
		"usb=()",
	}
)

// SetResponseHeaders adds default headers to HTTP responses.
func SetResponseHeaders(w http.ResponseWriter, r *http.Request, next http.Handler) {
	headers := w.Header()

	maps.Insert(headers, maps.All(baseHeaders))

	if config.Global.Development.InDevelopment {
		invalidateCacheInDevelopment(headers)
	}

	setCacheControl(headers, r.URL.Path)

	headers.Set("Refill-Version", config.Global.Build.Version())
	headers.Set("Refill-Revision", config.Global.Build.Revision())
	headers.Set("Content-Security-Policy", baseCSP)

	next.ServeHTTP(w, r)
}

var firstDevResponse atomic.Bool

// clear cache on the first response in development
func invalidateCacheInDevelopment(headers http.Header) {
	if firstDevResponse.CompareAndSwap(false, true) {
		headers.Set("Clear-Site-Data", `"cache"`)
	}
}

// setCacheControl sets appropriate cache control headers.
//
// Pages depend on the session and are never stored by shared caches.
// Bundled assets under /build/assets/ carry a content hash in their name.
func setCacheControl(headers http.Header, path string) {
	cacheControl := "private, no-cache"

	switch {
	case strings.HasPrefix(path, "/build/assets/"):
		cacheControl = "public, max-age=31536000, immutable"
	case strings.HasPrefix(path, "/build/"), path == "/favicon.ico", path == "/robots.txt":
		cacheControl = fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
			int(config.Global.HTTPCache.MaxAge.Seconds()),
			int(config.Global.HTTPCache.StaleWhileRevalidate.Seconds()))
	}

	headers.Set("Cache-Control", cacheControl)
}
