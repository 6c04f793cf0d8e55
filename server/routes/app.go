// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package routes holds the page handlers and controllers.

Handlers have the middleware.HandlerFunc signature and are bound to the route
table by the router package. Anything they need is reached through [App].
*/
package routes

import (
	"time"

	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/server/inertia"
)

// URLGenerator builds the path of a named route.
type URLGenerator interface {
	URL(name string, params map[string]string) (string, error)
}

// App carries the dependencies of the handlers.
type App struct {
	Pages    *inertia.Renderer
	Users    users.Store
	Keys     *authenticated.Validator
	Notifier users.Notifier
	URLs     URLGenerator

	// Now defaults to time.Now.
	Now func() time.Time
}

func (app *App) now() time.Time {
	if app.Now != nil {
		return app.Now()
	}

	return time.Now()
}
