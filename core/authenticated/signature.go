// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package authenticated

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

const (
	signedPathSubject = "signed path"
	resetSubject      = "password reset"

	// fingerprintLength is the number of hex characters of the password hash digest kept in reset tokens.
	fingerprintLength = 16
)

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidResetToken = errors.New("invalid password reset token")
)

var (
	signedPathParser = paseto.MakeParser([]paseto.Rule{
		paseto.NotExpired(),
		paseto.Subject(signedPathSubject),
	})
	resetParser = paseto.MakeParser([]paseto.Rule{
		paseto.NotExpired(),
		paseto.Subject(resetSubject),
	})
)

// SignPath returns a signature that is only valid for path until ttl elapses.
func (psk *Validator) SignPath(path string, ttl time.Duration) (string, error) {
	token := paseto.NewToken()
	token.SetExpiration(time.Now().Add(ttl))
	token.SetSubject(signedPathSubject)
	token.SetString("path", path)

	return psk.sign(token)
}

// VerifyPath checks a signature produced by SignPath against the requested path.
func (psk *Validator) VerifyPath(path, signature string) error {
	if signature == "" {
		return ErrInvalidSignature
	}

	token, err := psk.parse(signedPathParser, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	signedPath, err := token.GetString("path")
	if err != nil || signedPath != path {
		return ErrInvalidSignature
	}

	return nil
}

// PasswordFingerprint condenses a password hash so reset tokens die once the password changes.
func PasswordFingerprint(passwordHash []byte) string {
	sum := sha256.Sum256(passwordHash)

	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// IssueResetToken signs a password reset token for email.
func (psk *Validator) IssueResetToken(email, fingerprint string, ttl time.Duration) (string, error) {
	token := paseto.NewToken()
	token.SetExpiration(time.Now().Add(ttl))
	token.SetSubject(resetSubject)
	token.SetString("email", email)
	token.SetString("fp", fingerprint)

	return psk.sign(token)
}

// ParseResetToken returns the email and password fingerprint bound to a reset token.
func (psk *Validator) ParseResetToken(tainted string) (email, fingerprint string, err error) {
	token, err := psk.parse(resetParser, tainted)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidResetToken, err)
	}

	email, err = token.GetString("email")
	if err != nil {
		return "", "", ErrInvalidResetToken
	}

	fingerprint, err = token.GetString("fp")
	if err != nil {
		return "", "", ErrInvalidResetToken
	}

	return email, fingerprint, nil
}
