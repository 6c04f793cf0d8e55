// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// Make makes a short ID with a 6 byte timestamp and 3 bytes of entropy.
//
// Used for request IDs, which only need to be unique enough to grep the logs.
func Make() string {
	entropy := [3]byte{'a', 'a', 'a'}

	_, _ = rand.Read(entropy[:])

	return maketime(time.Now()) + base64.RawURLEncoding.EncodeToString(entropy[:])
}

// Secret returns n bytes of crypto/rand entropy encoded as URL-safe base64.
//
// Unlike Make, the result is suitable for CSRF tokens and cache identifiers.
func Secret(n int) string {
	b := make([]byte, n)

	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)

	return base64.RawURLEncoding.EncodeToString(b)
}

func maketime(t time.Time) string {
	return t.Format("150405")
}
