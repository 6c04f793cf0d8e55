// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"

	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/routes"
)

// redirectToRoute is a helper function to redirect requests to a named route
// while preserving the query string.
//
// Example:   /settings?tab=1   ->   /settings/profile?tab=1
func redirectToRoute(urls routes.URLGenerator, name string) middleware.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		location, err := urls.URL(name, nil)
		if err != nil {
			return err
		}

		if r.URL.RawQuery != "" {
			location += "?" + r.URL.RawQuery
		}

		http.Redirect(w, r, location, http.StatusFound)

		return nil
	}
}
