// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package authenticated

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

const sessionSubject = "session"

var ErrInvalidSession = errors.New("invalid session")

var sessionParser = paseto.MakeParser([]paseto.Rule{
	paseto.NotExpired(),
	paseto.Subject(sessionSubject),
})

// Session is the signed-in state carried by the session cookie.
type Session struct {
	UserID uuid.UUID
	// Remember selects the long session lifetime.
	Remember bool
	// PasswordConfirmedAt is when the user last re-entered their password.
	PasswordConfirmedAt time.Time
	// ExpiresAt is filled in by ParseSession.
	ExpiresAt time.Time
}

// IssueSession signs s, valid for lifetime.
func (psk *Validator) IssueSession(s Session, lifetime time.Duration) (string, error) {
	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetExpiration(time.Now().Add(lifetime))
	token.SetSubject(sessionSubject)
	token.SetString("uid", s.UserID.String())

	if err := token.Set("remember", s.Remember); err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	if !s.PasswordConfirmedAt.IsZero() {
		token.SetTime("pwc", s.PasswordConfirmedAt)
	}

	return psk.sign(token)
}

// ParseSession verifies a session cookie value.
func (psk *Validator) ParseSession(tainted string) (Session, error) {
	token, err := psk.parse(sessionParser, tainted)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	rawID, err := token.GetString("uid")
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	s := Session{UserID: id}

	// Optional claims.
	_ = token.Get("remember", &s.Remember)

	if pwc, err := token.GetTime("pwc"); err == nil {
		s.PasswordConfirmedAt = pwc
	}

	if exp, err := token.GetExpiration(); err == nil {
		s.ExpiresAt = exp
	}

	return s, nil
}
