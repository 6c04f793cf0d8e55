// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"codeberg.org/refill/refill/core/cookie"
	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/server/inertia"
	"codeberg.org/refill/refill/server/request_context"
)

// Flash statuses of the settings pages.
const (
	StatusProfileUpdated  = "profile-updated"
	StatusPasswordUpdated = "password-updated"
)

// Appearance values accepted by the appearance page.
var appearances = []string{"light", "dark", "system"}

// SettingsController manages the profile, password and appearance of the signed-in user.
type SettingsController struct {
	app *App
}

func NewSettingsController(app *App) *SettingsController {
	return &SettingsController{app: app}
}

func (c *SettingsController) ProfileEdit(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "settings/profile", inertia.Props{
		"mustVerifyEmail": true,
	})
}

// ProfileUpdate changes name and email. A new email must be verified again.
func (c *SettingsController) ProfileUpdate(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	u := request_context.FromRequest(r).User

	name := in.String("name")
	email := users.NormalizeEmail(in.String("email"))

	var v Validator

	v.checkName(name)
	v.checkEmail(email)

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	if email != u.Email {
		u.EmailVerifiedAt = nil
	}

	u.Name = name
	u.Email = email

	if err := c.app.Users.Update(r.Context(), u); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			v.AddFieldError("email", "The email has already been taken.")

			return invalid(w, r, &v)
		}

		return fmt.Errorf("failed to update profile: %w", err)
	}

	return c.app.toRouteWith(w, r, "profile.edit", untrusted.Flash{Status: StatusProfileUpdated})
}

// ProfileDestroy deletes the account after checking the password once more.
func (c *SettingsController) ProfileDestroy(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	u := request_context.FromRequest(r).User

	var v Validator

	v.CheckField(u.CheckPassword(in.Raw("password")), "password", "The provided password is incorrect.")

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	if err := c.app.Users.Delete(r.Context(), u.ID); err != nil && !errors.Is(err, users.ErrNotFound) {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	signOut(w, r)

	return c.app.toRoute(w, r, "home", nil)
}

func (c *SettingsController) PasswordEdit(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "settings/password", inertia.Props{})
}

func (c *SettingsController) PasswordUpdate(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	rc := request_context.FromRequest(r)
	u := rc.User

	var v Validator

	v.CheckField(u.CheckPassword(in.Raw("current_password")), "current_password", "The password is incorrect.")
	v.checkNewPassword(in)

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	if err := u.SetPassword(in.Raw("password")); err != nil {
		return err
	}

	if err := c.app.Users.Update(r.Context(), u); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return back(w, r, untrusted.Flash{Status: StatusPasswordUpdated})
}

// Appearance renders the theme page. The choice itself is stored client-side
// in the Appearance cookie.
func (c *SettingsController) Appearance(w http.ResponseWriter, r *http.Request) error {
	appearance := untrusted.GetCookie(r, cookie.AppearanceCookie)
	if !slices.Contains(appearances, appearance) {
		appearance = "system"
	}

	return c.app.Pages.Render(w, r, "settings/appearance", inertia.Props{
		"appearance": appearance,
	})
}
