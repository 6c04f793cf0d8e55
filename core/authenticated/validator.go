// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package authenticated signs and verifies the state we hand to user agents.

Everything is a v4.public paseto token. The subject claim separates the token
kinds so that a session token can never be replayed as a signed URL or a
password reset token.
*/
package authenticated

import (
	"errors"
	"fmt"

	"aidanwoods.dev/go-paseto"
)

// domain seperation key. can be anything. if you change it, past tokens will become invalid.
const Implicit = "Refill sessions and signed links"

var errNoKey = errors.New("authenticated: no secret key loaded")

func NewSecretKeyHex() string {
	return paseto.NewV4AsymmetricSecretKey().ExportHex()
}

// v4.public validator
type Validator struct {
	SecretKey paseto.V4AsymmetricSecretKey

	loaded bool
}

// NewValidator returns a validator with a freshly generated key.
//
// Tokens signed by it do not survive a restart.
func NewValidator() *Validator {
	return &Validator{SecretKey: paseto.NewV4AsymmetricSecretKey(), loaded: true}
}

func (psk *Validator) LoadSecretKeyFromHex(hex string) error {
	key, err := paseto.NewV4AsymmetricSecretKeyFromHex(hex)
	if err != nil {
		return fmt.Errorf("authenticated: invalid secret key: %w", err)
	}

	psk.SecretKey = key
	psk.loaded = true

	return nil
}

// sign signs token with the implicit assertion.
func (psk *Validator) sign(token paseto.Token) (string, error) {
	if !psk.loaded {
		return "", errNoKey
	}

	return token.V4Sign(psk.SecretKey, []byte(Implicit)), nil
}

// parse verifies a token with the given parser.
//
// The public key is derived on each call; this is cheap for ed25519.
func (psk *Validator) parse(parser paseto.Parser, tainted string) (*paseto.Token, error) {
	if !psk.loaded {
		return nil, errNoKey
	}

	return parser.ParseV4Public(psk.SecretKey.Public(), tainted, []byte(Implicit))
}
