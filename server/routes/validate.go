// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameChars      = 255
	maxEmailChars     = 255
	minPasswordChars  = 8
	maxPasswordBytes  = 72 // bcrypt ignores the rest
	passwordConfirmed = "password_confirmation"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validator collects one message per invalid field.
type Validator struct {
	FieldErrors map[string]string
}

// Valid reports whether no field failed.
func (v *Validator) Valid() bool {
	return len(v.FieldErrors) == 0
}

// AddFieldError records message for field unless field already failed.
func (v *Validator) AddFieldError(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = map[string]string{}
	}

	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
}

// CheckField adds message for field unless ok.
func (v *Validator) CheckField(ok bool, field, message string) {
	if !ok {
		v.AddFieldError(field, message)
	}
}

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MaxChars(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

func MinChars(value string, n int) bool {
	return utf8.RuneCountInString(value) >= n
}

func IsEmail(value string) bool {
	return emailRegex.MatchString(value)
}

func (v *Validator) checkName(name string) {
	v.CheckField(NotBlank(name), "name", "The name field is required.")
	v.CheckField(MaxChars(name, maxNameChars), "name", "The name may not be greater than 255 characters.")
}

func (v *Validator) checkEmail(email string) {
	v.CheckField(NotBlank(email), "email", "The email field is required.")
	v.CheckField(MaxChars(email, maxEmailChars), "email", "The email may not be greater than 255 characters.")
	v.CheckField(IsEmail(email), "email", "The email must be a valid email address.")
}

// checkNewPassword validates a password that is about to be stored.
func (v *Validator) checkNewPassword(in Input) {
	password := in.Raw("password")

	v.CheckField(password != "", "password", "The password field is required.")
	v.CheckField(MinChars(password, minPasswordChars), "password", "The password must be at least 8 characters.")
	v.CheckField(len(password) <= maxPasswordBytes, "password", "The password may not be greater than 72 bytes.")
	v.CheckField(password == in.Raw(passwordConfirmed), "password", "The password confirmation does not match.")
}
