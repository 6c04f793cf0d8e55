// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package authenticated

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSecretKeyFromHex(t *testing.T) {
	t.Parallel()

	var v Validator
	require.NoError(t, v.LoadSecretKeyFromHex(NewSecretKeyHex()))

	var bad Validator
	require.Error(t, bad.LoadSecretKeyFromHex("not hex"))

	_, err := bad.IssueSession(Session{}, time.Minute)
	require.ErrorIs(t, err, errNoKey)
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	id := uuid.New()
	confirmed := time.Now().Add(-time.Minute).Truncate(time.Second)

	signed, err := v.IssueSession(Session{UserID: id, Remember: true, PasswordConfirmedAt: confirmed}, time.Hour)
	require.NoError(t, err)

	s, err := v.ParseSession(signed)
	require.NoError(t, err)

	assert.Equal(t, id, s.UserID)
	assert.True(t, s.Remember)
	assert.True(t, confirmed.Equal(s.PasswordConfirmedAt))
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)
}

func TestSessionRejections(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	other := NewValidator()

	expired, err := v.IssueSession(Session{UserID: uuid.New()}, -time.Minute)
	require.NoError(t, err)

	foreign, err := other.IssueSession(Session{UserID: uuid.New()}, time.Hour)
	require.NoError(t, err)

	signature, err := v.SignPath("/verify-email/1/abc", time.Hour)
	require.NoError(t, err)

	for name, tainted := range map[string]string{
		"expired":       expired,
		"foreign key":   foreign,
		"garbage":       "v4.public.garbage",
		"wrong subject": signature,
		"empty":         "",
	} {
		_, err := v.ParseSession(tainted)
		assert.ErrorIs(t, err, ErrInvalidSession, name)
	}
}

func TestSignedPath(t *testing.T) {
	t.Parallel()

	v := NewValidator()

	signature, err := v.SignPath("/verify-email/1/abc", time.Hour)
	require.NoError(t, err)

	require.NoError(t, v.VerifyPath("/verify-email/1/abc", signature))
	assert.ErrorIs(t, v.VerifyPath("/verify-email/2/abc", signature), ErrInvalidSignature)
	assert.ErrorIs(t, v.VerifyPath("/verify-email/1/abc", ""), ErrInvalidSignature)

	expired, err := v.SignPath("/verify-email/1/abc", -time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, v.VerifyPath("/verify-email/1/abc", expired), ErrInvalidSignature)
}

func TestResetToken(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	fp := PasswordFingerprint([]byte("$2a$10$hash"))

	assert.Len(t, fp, fingerprintLength)
	assert.NotEqual(t, fp, PasswordFingerprint([]byte("$2a$10$other")))

	token, err := v.IssueResetToken("ada@example.com", fp, time.Hour)
	require.NoError(t, err)

	email, gotFP, err := v.ParseResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)
	assert.Equal(t, fp, gotFP)

	session, err := v.IssueSession(Session{UserID: uuid.New()}, time.Hour)
	require.NoError(t, err)

	_, _, err = v.ParseResetToken(session)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
