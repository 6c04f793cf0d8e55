// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/inertia"
	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/request_context"
	"codeberg.org/refill/refill/server/utils"
)

// Flash statuses understood by the auth pages.
const (
	StatusVerificationLinkSent = "verification-link-sent"
	StatusResetLinkSent        = "A reset link will be sent if the account exists."
	StatusPasswordReset        = "Your password has been reset."
)

var errVerificationMismatch = middleware.NewStatusError(http.StatusForbidden, errors.New("this verification link does not belong to you"))

// AuthController handles registration, sign-in, password resets and email verification.
type AuthController struct {
	app *App
}

func NewAuthController(app *App) *AuthController {
	return &AuthController{app: app}
}

func (c *AuthController) RegisterCreate(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "auth/register", inertia.Props{})
}

func (c *AuthController) RegisterStore(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	name := in.String("name")
	email := users.NormalizeEmail(in.String("email"))

	var v Validator

	v.checkName(name)
	v.checkEmail(email)
	v.checkNewPassword(in)

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	u := &users.User{Name: name, Email: email}
	if err := u.SetPassword(in.Raw("password")); err != nil {
		return err
	}

	if err := c.app.Users.Create(r.Context(), u); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			v.AddFieldError("email", "The email has already been taken.")

			return invalid(w, r, &v)
		}

		return fmt.Errorf("failed to register user: %w", err)
	}

	if err := c.sendVerificationLink(r, u); err != nil {
		log.Err(err).Str("user_id", u.ID.String()).Msg("Failed to send verification link")
	}

	if err := c.app.signIn(w, r, u, false); err != nil {
		return err
	}

	return c.app.toRoute(w, r, gate.HomeRoute, nil)
}

func (c *AuthController) LoginCreate(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "auth/login", inertia.Props{
		"canResetPassword": true,
		"intended":         utils.SanitizeReturnPath(utils.QueryParam(r, "intended")),
	})
}

func (c *AuthController) LoginStore(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	email := users.NormalizeEmail(in.String("email"))
	password := in.Raw("password")

	var v Validator

	v.checkEmail(email)
	v.CheckField(password != "", "password", "The password field is required.")

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	u, err := c.app.Users.ByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return err
	}

	if u == nil || !u.CheckPassword(password) {
		v.AddFieldError("email", "These credentials do not match our records.")

		return invalid(w, r, &v)
	}

	if err := c.app.signIn(w, r, u, in.Bool("remember")); err != nil {
		return err
	}

	target, err := c.app.intendedURL(r, in, gate.HomeRoute)
	if err != nil {
		return err
	}

	http.Redirect(w, r, target, http.StatusFound)

	return nil
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) error {
	signOut(w, r)

	return c.app.toRoute(w, r, "home", nil)
}

func (c *AuthController) ForgotCreate(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "auth/forgot-password", inertia.Props{})
}

// ForgotStore mails a reset link. The answer is the same whether or not the
// account exists.
func (c *AuthController) ForgotStore(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	email := users.NormalizeEmail(in.String("email"))

	var v Validator

	v.checkEmail(email)

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	u, err := c.app.Users.ByEmail(r.Context(), email)

	switch {
	case errors.Is(err, users.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := c.sendResetLink(r, u); err != nil {
			return err
		}
	}

	return back(w, r, untrusted.Flash{Status: StatusResetLinkSent})
}

func (c *AuthController) sendResetLink(r *http.Request, u *users.User) error {
	token, err := c.app.Keys.IssueResetToken(u.Email, authenticated.PasswordFingerprint(u.PasswordHash), config.Global.Session.ResetTokenLifetime)
	if err != nil {
		return err
	}

	path, err := c.app.URLs.URL("password.reset", map[string]string{"token": token, "email": u.Email})
	if err != nil {
		return err
	}

	return c.app.Notifier.SendPasswordResetLink(r.Context(), u, config.Global.Basic.AppURL+path)
}

func (c *AuthController) ResetCreate(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "auth/reset-password", inertia.Props{
		"token": utils.PathVar(r, "token"),
		"email": utils.QueryParam(r, "email"),
	})
}

// ResetStore sets a new password. A token stops working once the password it
// was issued for has changed.
func (c *AuthController) ResetStore(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	email := users.NormalizeEmail(in.String("email"))

	var v Validator

	v.CheckField(in.String("token") != "", "token", "The token field is required.")
	v.checkEmail(email)
	v.checkNewPassword(in)

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	u, err := c.resetTarget(r, in.String("token"), email)
	if err != nil {
		return err
	}

	if u == nil {
		v.AddFieldError("email", "This password reset token is invalid.")

		return invalid(w, r, &v)
	}

	if err := u.SetPassword(in.Raw("password")); err != nil {
		return err
	}

	// following a mailed link proves ownership of the address
	u.MarkEmailVerified(c.app.now())

	if err := c.app.Users.Update(r.Context(), u); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	return c.app.toRouteWith(w, r, gate.LoginRoute, untrusted.Flash{Status: StatusPasswordReset})
}

// resetTarget returns the user a reset token is valid for, or nil.
func (c *AuthController) resetTarget(r *http.Request, token, email string) (*users.User, error) {
	tokenEmail, fingerprint, err := c.app.Keys.ParseResetToken(token)
	if err != nil || tokenEmail != email {
		return nil, nil //nolint:nilnil
	}

	u, err := c.app.Users.ByEmail(r.Context(), email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, err
	}

	current := authenticated.PasswordFingerprint(u.PasswordHash)
	if subtle.ConstantTimeCompare([]byte(current), []byte(fingerprint)) != 1 {
		return nil, nil //nolint:nilnil
	}

	return u, nil
}

func (c *AuthController) VerifyNotice(w http.ResponseWriter, r *http.Request) error {
	if request_context.FromRequest(r).User.Verified() {
		return c.app.toRoute(w, r, gate.HomeRoute, nil)
	}

	return c.app.Pages.Render(w, r, "auth/verify-email", inertia.Props{})
}

// VerifyEmail marks the address verified. The route is signed, and the link
// must belong to the signed-in user.
func (c *AuthController) VerifyEmail(w http.ResponseWriter, r *http.Request) error {
	u := request_context.FromRequest(r).User

	id, err := uuid.Parse(utils.PathVar(r, "id"))
	if err != nil || id != u.ID {
		return errVerificationMismatch
	}

	if subtle.ConstantTimeCompare([]byte(utils.PathVar(r, "hash")), []byte(EmailHash(u.Email))) != 1 {
		return errVerificationMismatch
	}

	if u.MarkEmailVerified(c.app.now()) {
		if err := c.app.Users.Update(r.Context(), u); err != nil {
			return fmt.Errorf("failed to verify email: %w", err)
		}
	}

	return c.app.toRoute(w, r, gate.HomeRoute, map[string]string{"verified": "1"})
}

func (c *AuthController) VerifySend(w http.ResponseWriter, r *http.Request) error {
	u := request_context.FromRequest(r).User

	if u.Verified() {
		return c.app.toRoute(w, r, gate.HomeRoute, nil)
	}

	if err := c.sendVerificationLink(r, u); err != nil {
		return err
	}

	return back(w, r, untrusted.Flash{Status: StatusVerificationLinkSent})
}

// EmailHash binds a verification link to the address it was sent to.
func EmailHash(email string) string {
	sum := sha256.Sum256([]byte(email))

	return hex.EncodeToString(sum[:])
}

func (c *AuthController) sendVerificationLink(r *http.Request, u *users.User) error {
	path, err := c.app.URLs.URL("verification.verify", map[string]string{
		"id":   u.ID.String(),
		"hash": EmailHash(u.Email),
	})
	if err != nil {
		return err
	}

	signature, err := c.app.Keys.SignPath(path, config.Global.Session.VerificationLinkLifetime)
	if err != nil {
		return err
	}

	link := config.Global.Basic.AppURL + path + "?" + url.Values{gate.SignatureParam: {signature}}.Encode()

	return c.app.Notifier.SendVerificationLink(r.Context(), u, link)
}

func (c *AuthController) ConfirmShow(w http.ResponseWriter, r *http.Request) error {
	return c.app.Pages.Render(w, r, "auth/confirm-password", inertia.Props{})
}

// ConfirmStore records a fresh password confirmation in the session.
func (c *AuthController) ConfirmStore(w http.ResponseWriter, r *http.Request) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}

	rc := request_context.FromRequest(r)

	var v Validator

	v.CheckField(rc.User.CheckPassword(in.Raw("password")), "password", "The provided password is incorrect.")

	if !v.Valid() {
		return invalid(w, r, &v)
	}

	session := *rc.Session
	session.PasswordConfirmedAt = c.app.now()

	if err := c.app.writeSession(w, r, session); err != nil {
		return err
	}

	target, err := c.app.intendedURL(r, in, gate.HomeRoute)
	if err != nil {
		return err
	}

	http.Redirect(w, r, target, http.StatusFound)

	return nil
}
