// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Command adduser creates an account in the configured Postgres database.
//
//	go run ./cmd/adduser -name "Ada Lovelace" -email ada@example.com -verified
//
// The password is read from the terminal, or from the first line of stdin
// when stdin is not a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/audit"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/core/users/postgres"
)

const minPasswordLength = 8

var (
	errNoDatabase      = errors.New("database.url is not configured; accounts in the in-memory store do not outlive the server")
	errMissingField    = errors.New("-name and -email are required")
	errShortPassword   = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	errPasswordsDiffer = errors.New("passwords do not match")
)

func main() {
	audit.SetDefaultLogger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Failed to add user")
	}
}

func run() error {
	name := flag.String("name", "", "Display name of the new user.")
	email := flag.String("email", "", "Email address of the new user.")
	verified := flag.Bool("verified", false, "Mark the email address as verified.")

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" {
		return errMissingField
	}

	cfg := config.Global.Database
	if cfg.URL == "" {
		return errNoDatabase
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	u := &users.User{Name: strings.TrimSpace(*name), Email: users.NormalizeEmail(*email)}
	if err := u.SetPassword(password); err != nil {
		return err
	}

	if *verified {
		u.MarkEmailVerified(time.Now())
	}

	ctx := context.Background()

	if cfg.Migrate {
		if err := postgres.Migrate(cfg.URL); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	store, err := postgres.Open(ctx, cfg.URL, 1)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if err := store.Create(ctx, u); err != nil {
		return err
	}

	log.Info().
		Str("id", u.ID.String()).
		Str("email", u.Email).
		Bool("verified", u.Verified()).
		Msg("User created")

	return nil
}

// readPassword prompts twice on a terminal, or reads one line from stdin.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec

	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password from stdin: %w", err)
		}

		return checkPassword(strings.TrimRight(line, "\r\n"), "")
	}

	fmt.Fprint(os.Stderr, "Password: ")

	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")

	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return checkPassword(string(first), string(second))
}

// checkPassword applies the registration rules. An empty confirm skips the match check.
func checkPassword(password, confirm string) (string, error) {
	if len([]rune(password)) < minPasswordLength {
		return "", errShortPassword
	}

	if confirm != "" && confirm != password {
		return "", errPasswordsDiffer
	}

	return password, nil
}
