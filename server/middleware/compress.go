// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// responses smaller than this are sent as-is
const compressMinSize = 1024

// NewCompress returns a middleware that gzips responses for clients that accept it.
func NewCompress() (Middleware, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressMinSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip wrapper: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		wrap(next).ServeHTTP(w, r)
	}, nil
}
