// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"

	"codeberg.org/refill/refill/server/inertia"
	"codeberg.org/refill/refill/server/middleware"
)

// Page renders component without props of its own.
func (app *App) Page(component string) middleware.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		return app.Pages.Render(w, r, component, inertia.Props{})
	}
}

// MainController serves the refill section.
type MainController struct {
	app *App
}

func NewMainController(app *App) *MainController {
	return &MainController{app: app}
}

// IndexRefill renders the refill page.
func (c *MainController) IndexRefill(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "refill", inertia.Props{})
}
