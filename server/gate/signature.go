// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package gate

import (
	"errors"
	"net/http"

	"codeberg.org/refill/refill/server/middleware"
)

// SignatureParam is the query parameter carrying a URL signature.
const SignatureParam = "signature"

// the message is shown to the user as is
var errInvalidSignature = middleware.NewStatusError(http.StatusForbidden, errors.New("Invalid signature.")) //nolint:staticcheck

// PathVerifier checks URL signatures.
type PathVerifier interface {
	VerifyPath(path, signature string) error
}

type validateSignature struct {
	verifier PathVerifier
}

// ValidateSignature requires a valid, unexpired signature for the request path.
func ValidateSignature(verifier PathVerifier) Gate {
	return validateSignature{verifier: verifier}
}

func (validateSignature) Name() string { return "signed" }

func (g validateSignature) Check(r *http.Request) error {
	if err := g.verifier.VerifyPath(r.URL.Path, r.URL.Query().Get(SignatureParam)); err != nil {
		return errInvalidSignature
	}

	return nil
}
