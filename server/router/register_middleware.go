// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/middleware/set_request_context"
	"codeberg.org/refill/refill/server/request_context"
	"codeberg.org/refill/refill/server/routes"
)

// RegisterMiddleware installs the global middleware chain.
func (router *Router) RegisterMiddleware(app *routes.App) error {
	compress, err := middleware.NewCompress()
	if err != nil {
		return err
	}

	locales := request_context.NewLocales(config.Global.Instance.LocaleTags)

	tokenMismatch := middleware.CatchError(func(http.ResponseWriter, *http.Request) error {
		return middleware.ErrTokenMismatch
	}, app.ErrorPage)

	// unknown paths and methods answer 404 and 405 whatever the token
	csrfRejected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !router.table.Matches(r) {
			router.table.ServeHTTP(w, r)

			return
		}

		tokenMismatch.ServeHTTP(w, r)
	})

	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)
	router.Use(compress)
	router.Use(middleware.NormalizeURL)
	// needed for everything else
	router.Use(set_request_context.New(app.Keys, app.Users, locales))
	router.Use(middleware.SetResponseHeaders)
	router.Use(middleware.NewCSRF(csrfRejected))
	router.Use(app.Pages.Middleware)

	return nil
}
