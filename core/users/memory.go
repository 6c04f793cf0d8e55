// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users in process memory. Data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// Create stores u, assigning an ID and timestamps when missing.
func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return ErrEmailTaken
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	now := s.now()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now

	s.byID[u.ID] = clone(u)
	s.byEmail[email] = u.ID

	return nil
}

func (s *MemoryStore) ByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	out := clone(&u)

	return &out, nil
}

func (s *MemoryStore) ByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return s.ByID(ctx, id)
}

// Update overwrites the stored user with u.
func (s *MemoryStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[u.ID]
	if !ok {
		return ErrNotFound
	}

	email := NormalizeEmail(u.Email)
	if owner, taken := s.byEmail[email]; taken && owner != u.ID {
		return ErrEmailTaken
	}

	delete(s.byEmail, current.Email)

	u.Email = email
	u.CreatedAt = current.CreatedAt
	u.UpdatedAt = s.now()

	s.byID[u.ID] = clone(u)
	s.byEmail[email] = u.ID

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}

	delete(s.byID, id)
	delete(s.byEmail, u.Email)

	return nil
}

// clone copies u so callers cannot mutate stored state.
func clone(u *User) User {
	out := *u
	out.PasswordHash = append([]byte(nil), u.PasswordHash...)

	if u.EmailVerifiedAt != nil {
		at := *u.EmailVerifiedAt
		out.EmailVerifiedAt = &at
	}

	return out
}
