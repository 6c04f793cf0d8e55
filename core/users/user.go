// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package users holds the account model and its persistence.

Two Store implementations exist: an in-memory one used by default and in
tests, and a Postgres one in the postgres subpackage.
*/
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email has already been taken")
)

// User is a registered account.
type User struct {
	ID              uuid.UUID
	Name            string
	Email           string
	PasswordHash    []byte
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Verified reports whether the user confirmed their email address.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// MarkEmailVerified records verification at now. It reports whether anything changed.
func (u *User) MarkEmailVerified(now time.Time) bool {
	if u.Verified() {
		return false
	}

	u.EmailVerifiedAt = &now

	return true
}

// Store persists users. Emails are unique and compared case-insensitively.
type Store interface {
	Create(ctx context.Context, u *User) error
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NormalizeEmail is the canonical form used for uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
