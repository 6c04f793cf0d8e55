// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package users

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Notifier delivers account links to users.
type Notifier interface {
	SendPasswordResetLink(ctx context.Context, u *User, link string) error
	SendVerificationLink(ctx context.Context, u *User, link string) error
}

// LogNotifier writes links to the application log instead of sending mail.
//
// Suitable for development and for instances without outgoing mail.
type LogNotifier struct{}

func (LogNotifier) SendPasswordResetLink(_ context.Context, u *User, link string) error {
	log.Info().
		Str("sys", "mail").
		Str("to", u.Email).
		Str("link", link).
		Msg("Password reset link")

	return nil
}

func (LogNotifier) SendVerificationLink(_ context.Context, u *User, link string) error {
	log.Info().
		Str("sys", "mail").
		Str("to", u.Email).
		Str("link", link).
		Msg("Email verification link")

	return nil
}
