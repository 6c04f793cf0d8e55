// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package untrusted

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/refill/refill/core/cookie"
)

// flashTTL bounds how long a flash survives if the redirect is never followed.
const flashTTL = 5 * time.Minute

// Flash is state carried across exactly one redirect.
type Flash struct {
	// Errors maps a form field to its validation message.
	Errors map[string]string `json:"errors,omitempty"`
	// Status is a short machine-readable outcome, e.g. "verification-link-sent".
	Status string `json:"status,omitempty"`
}

// Empty reports whether the flash carries nothing worth storing.
func (f Flash) Empty() bool {
	return len(f.Errors) == 0 && f.Status == ""
}

// SetFlash stores f for the next request.
func SetFlash(w http.ResponseWriter, r *http.Request, f Flash) {
	if f.Empty() {
		return
	}

	raw, err := json.Marshal(f)
	if err != nil {
		return
	}

	SetCookieFor(w, r, cookie.FlashCookie, base64.RawURLEncoding.EncodeToString(raw), flashTTL)
}

// TakeFlash returns the pending flash and clears it.
//
// A malformed cookie is cleared and treated as empty.
func TakeFlash(w http.ResponseWriter, r *http.Request) Flash {
	value := GetCookie(r, cookie.FlashCookie)
	if value == "" {
		return Flash{}
	}

	ClearCookie(w, r, cookie.FlashCookie)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Flash{}
	}

	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil {
		return Flash{}
	}

	return f
}
