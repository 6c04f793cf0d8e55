// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"time"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/server/inertia"
	"codeberg.org/refill/refill/server/request_context"
)

// UserProps is the signed-in user as sent to pages.
type UserProps struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func userProps(u *users.User) *UserProps {
	if u == nil {
		return nil
	}

	return &UserProps{
		ID:              u.ID.String(),
		Name:            u.Name,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// SharedProps are sent with every page.
func (app *App) SharedProps(r *http.Request) inertia.Props {
	rc := request_context.FromRequest(r)

	errors := rc.Flash.Errors
	if errors == nil {
		errors = map[string]string{}
	}

	return inertia.Props{
		"name":   config.Global.Basic.AppName,
		"locale": rc.Locale.String(),
		"auth": map[string]any{
			"user": userProps(rc.User),
		},
		"errors": errors,
		"flash": map[string]any{
			"status": rc.Flash.Status,
		},
	}
}
