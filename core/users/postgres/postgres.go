// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package postgres implements users.Store on PostgreSQL.
*/
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// scheme
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"codeberg.org/refill/refill/core/users"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// Store is a users.Store backed by a connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ users.Store = (*Store)(nil)

// Open connects to databaseURL with at most maxConns connections.
func Open(ctx context.Context, databaseURL string, maxConns int) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns) //nolint:gosec // bounded by config validation
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate applies all pending schema migrations to databaseURL.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("Database schema is up to date")

	return nil
}

// migrateURL rewrites a postgres:// URL to the scheme of the pgx v5 migrate driver.
func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}

	return databaseURL
}

const userColumns = `id, name, email, password_hash, email_verified_at, created_at, updated_at`

func (s *Store) Create(ctx context.Context, u *users.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	u.Email = users.NormalizeEmail(u.Email)

	q := `
		INSERT INTO users (id, name, email, password_hash, email_verified_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := s.pool.
		QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.EmailVerifiedAt).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isDuplicateError(err) {
			return users.ErrEmailTaken
		}

		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) ByEmail(ctx context.Context, email string) (*users.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUser(s.pool.QueryRow(ctx, q, users.NormalizeEmail(email)))
}

func (s *Store) Update(ctx context.Context, u *users.User) error {
	u.Email = users.NormalizeEmail(u.Email)

	q := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, email_verified_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := s.pool.
		QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.EmailVerifiedAt).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return users.ErrNotFound
		}

		if isDuplicateError(err) {
			return users.ErrEmailTaken
		}

		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return users.ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}

		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	return false
}
