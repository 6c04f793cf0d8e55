// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"time"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/routes"
)

// defineSettingsRoutes registers the account settings pages. All of them
// require a signed-in user.
func defineSettingsRoutes(t *Table, app *routes.App, limiters *gate.Limiters) {
	settings := routes.NewSettingsController(app)
	group := t.Group("/settings", gate.Authenticate())

	_ = group.Get("", redirectToRoute(app.URLs, "profile.edit"), Options{Name: "settings"})

	_ = group.Get("/profile", settings.ProfileEdit, Options{Name: "profile.edit"})
	_ = group.Register(http.MethodPatch, "/profile", settings.ProfileUpdate, Options{Name: "profile.update"})
	_ = group.Register(http.MethodDelete, "/profile", settings.ProfileDestroy, Options{
		Name:  "profile.destroy",
		Gates: []gate.Gate{gate.RequirePassword(config.Global.Session.PasswordTimeout)},
	})

	_ = group.Get("/password", settings.PasswordEdit, Options{Name: "password.edit"})
	_ = group.Register(http.MethodPut, "/password", settings.PasswordUpdate, Options{
		Name:  "password.update",
		Gates: []gate.Gate{gate.Throttle(limiters, 6, time.Minute)},
	})

	_ = group.Get("/appearance", settings.Appearance, Options{Name: "appearance"})
}
