// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package userstest checks users.Store implementations against the same expectations.
package userstest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/refill/refill/core/users"
)

// RunStoreTests runs the store suite. newStore must return an empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) users.Store) {
	t.Helper()

	t.Run("create and look up", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		u := &users.User{Name: "Ada", Email: "  Ada@Example.com ", PasswordHash: []byte("hash")}
		require.NoError(t, store.Create(ctx, u))

		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.Equal(t, "ada@example.com", u.Email)
		assert.False(t, u.CreatedAt.IsZero())

		byID, err := store.ByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", byID.Name)
		assert.Equal(t, []byte("hash"), byID.PasswordHash)
		assert.False(t, byID.Verified())

		byEmail, err := store.ByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("email is unique", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		require.NoError(t, store.Create(ctx, &users.User{Name: "A", Email: "a@example.com", PasswordHash: []byte("x")}))

		err := store.Create(ctx, &users.User{Name: "B", Email: "A@example.com", PasswordHash: []byte("x")})
		require.ErrorIs(t, err, users.ErrEmailTaken)

		other := &users.User{Name: "C", Email: "c@example.com", PasswordHash: []byte("x")}
		require.NoError(t, store.Create(ctx, other))

		other.Email = "a@example.com"
		require.ErrorIs(t, store.Update(ctx, other), users.ErrEmailTaken)
	})

	t.Run("update", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		u := &users.User{Name: "Ada", Email: "ada@example.com", PasswordHash: []byte("x")}
		require.NoError(t, store.Create(ctx, u))

		u.Name = "Ada Lovelace"
		u.Email = "lovelace@example.com"
		u.MarkEmailVerified(time.Now())
		require.NoError(t, store.Update(ctx, u))

		got, err := store.ByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", got.Name)
		assert.True(t, got.Verified())

		_, err = store.ByEmail(ctx, "ada@example.com")
		require.ErrorIs(t, err, users.ErrNotFound, "old email is released")

		_, err = store.ByEmail(ctx, "lovelace@example.com")
		require.NoError(t, err)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		u := &users.User{Name: "Ada", Email: "ada@example.com", PasswordHash: []byte("x")}
		require.NoError(t, store.Create(ctx, u))

		got, err := store.ByID(ctx, u.ID)
		require.NoError(t, err)

		got.Name = "changed without Update"

		again, err := store.ByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", again.Name)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		ctx := t.Context()

		u := &users.User{Name: "Ada", Email: "ada@example.com", PasswordHash: []byte("x")}
		require.NoError(t, store.Create(ctx, u))
		require.NoError(t, store.Delete(ctx, u.ID))

		_, err := store.ByID(ctx, u.ID)
		require.ErrorIs(t, err, users.ErrNotFound)

		require.ErrorIs(t, store.Delete(ctx, u.ID), users.ErrNotFound)
		require.ErrorIs(t, store.Update(ctx, u), users.ErrNotFound)

		require.NoError(t, store.Create(ctx, &users.User{Name: "Ada", Email: "ada@example.com", PasswordHash: []byte("x")}),
			"email can be reused after delete")
	})
}
