// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"time"

	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/routes"
)

// defineAuthRoutes registers sign-up, sign-in, password reset and email verification.
func defineAuthRoutes(t *Table, app *routes.App, limiters *gate.Limiters) {
	auth := routes.NewAuthController(app)

	guest := t.Group("", gate.RedirectIfAuthenticated())

	_ = guest.Get("/register", auth.RegisterCreate, Options{Name: "register"})
	_ = guest.Post("/register", auth.RegisterStore, Options{Name: "register.store"})

	_ = guest.Get("/login", auth.LoginCreate, Options{Name: "login"})
	_ = guest.Post("/login", auth.LoginStore, Options{
		Name:  "login.store",
		Gates: []gate.Gate{gate.Throttle(limiters, 5, time.Minute)},
	})

	_ = guest.Get("/forgot-password", auth.ForgotCreate, Options{Name: "password.request"})
	_ = guest.Post("/forgot-password", auth.ForgotStore, Options{
		Name:  "password.email",
		Gates: []gate.Gate{gate.Throttle(limiters, 6, time.Minute)},
	})

	_ = guest.Get("/reset-password/{token}", auth.ResetCreate, Options{Name: "password.reset"})
	_ = guest.Post("/reset-password", auth.ResetStore, Options{Name: "password.store"})

	user := t.Group("", gate.Authenticate())

	_ = user.Get("/verify-email", auth.VerifyNotice, Options{Name: "verification.notice"})
	_ = user.Get("/verify-email/{id}/{hash}", auth.VerifyEmail, Options{
		Name:  "verification.verify",
		Gates: []gate.Gate{gate.ValidateSignature(app.Keys), gate.Throttle(limiters, 6, time.Minute)},
	})
	_ = user.Post("/email/verification-notification", auth.VerifySend, Options{
		Name:  "verification.send",
		Gates: []gate.Gate{gate.Throttle(limiters, 6, time.Minute)},
	})

	_ = user.Get("/confirm-password", auth.ConfirmShow, Options{Name: "password.confirm"})
	_ = user.Post("/confirm-password", auth.ConfirmStore, Options{
		Name:  "password.confirm.store",
		Gates: []gate.Gate{gate.Throttle(limiters, 6, time.Minute)},
	})

	_ = user.Post("/logout", auth.Logout, Options{Name: "logout"})
}
