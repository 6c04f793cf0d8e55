// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/server/utils"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errUnixSocketUserDoesNotExist   = errors.New("user does not exist")
	errUnixSocketGroupDoesNotExist  = errors.New("group does not exist")
	errSecretRequired               = errors.New("basic.secret is required")
	errSecretInvalid                = errors.New("basic.secret is not a valid paseto key")
	errNonPositiveDuration          = errors.New("session durations must be positive")
	errInvalidLimiterCacheSize      = errors.New("limiter.cacheSize must be positive")
	errInvalidDatabaseMaxConns      = errors.New("database.maxConns must be positive")
	errInvalidLogLevel              = errors.New("invalid log.logLevel")
	errInvalidLogFormat             = errors.New("invalid log.logFormat")
	errNoLocales                    = errors.New("instance.locales must list at least one locale")
)

var (
	fileModeOctalRegexp  = regexp.MustCompile(`^0?[0-7]{3}$`)
	fileModeStringRegexp = regexp.MustCompile(`^(?:[r-][w-][x-]){3}$`)
	digitsRegexp         = regexp.MustCompile(`^[0-9]+$`)
)

// validateAndSet validates the server configuration and populates some fields.
func (cfg *ServerConfig) validateAndSet() error {
	if err := cfg.validateListener(); err != nil {
		return err
	}

	appURL, err := utils.ParseURL(cfg.Basic.AppURL, "App")
	if err != nil {
		return fmt.Errorf("invalid app URL: %w", err)
	}

	cfg.Basic.AppURL = appURL.String()

	repoURL, err := utils.ParseURL(cfg.Instance.RepoURL, "Repo")
	if err != nil {
		return fmt.Errorf("invalid repo URL: %w", err)
	}

	cfg.Instance.RepoURL = repoURL.String()

	for _, d := range []struct {
		name  string
		value int64
	}{
		{"lifetime", int64(cfg.Session.Lifetime)},
		{"rememberLifetime", int64(cfg.Session.RememberLifetime)},
		{"passwordTimeout", int64(cfg.Session.PasswordTimeout)},
		{"resetTokenLifetime", int64(cfg.Session.ResetTokenLifetime)},
		{"verificationLinkLifetime", int64(cfg.Session.VerificationLinkLifetime)},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%w: session.%s", errNonPositiveDuration, d.name)
		}
	}

	if cfg.Limiter.CacheSize <= 0 {
		return errInvalidLimiterCacheSize
	}

	if cfg.Database.URL != "" && cfg.Database.MaxConns <= 0 {
		return errInvalidDatabaseMaxConns
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.Log.Level)
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: %q", errInvalidLogFormat, cfg.Log.Format)
	}

	if len(cfg.Instance.Locales) == 0 {
		return errNoLocales
	}

	cfg.Instance.LocaleTags = make([]language.Tag, 0, len(cfg.Instance.Locales))

	for _, raw := range cfg.Instance.Locales {
		tag, err := language.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid locale %q: %w", raw, err)
		}

		cfg.Instance.LocaleTags = append(cfg.Instance.LocaleTags, tag)
	}

	if cfg.Inertia.Version == "" {
		cfg.Inertia.Version = cfg.Instance.FileServerCacheID
	}

	return cfg.loadKeys()
}

// loadKeys sets cfg.Keys from Basic.Secret.
//
// Development instances without a secret get a throwaway key.
func (cfg *ServerConfig) loadKeys() error {
	if cfg.Basic.Secret == "" {
		if cfg.Development.InDevelopment {
			log.Warn().Msg("basic.secret is not set; using a temporary key. Sessions will not survive a restart.")

			cfg.Keys = authenticated.NewValidator()

			return nil
		}

		key := authenticated.NewSecretKeyHex()
		log.Error().Msgf("Generated secret key (put this in config.yaml)\nbasic:\n  secret: \"%s\"", key)

		return errSecretRequired
	}

	keys := &authenticated.Validator{}
	if err := keys.LoadSecretKeyFromHex(cfg.Basic.Secret); err != nil {
		key := authenticated.NewSecretKeyHex()
		log.Error().Err(err).Msgf("Generated secret key (put this in config.yaml)\nbasic:\n  secret: \"%s\"", key)

		return errSecretInvalid
	}

	cfg.Keys = keys

	// remove key. no longer needed.
	cfg.Basic.Secret = ""

	return nil
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = "localhost"
			log.Info().
				Str("host", cfg.Basic.Host).
				Msg("Binding to default host")
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = "8282"
			log.Info().
				Str("port", cfg.Basic.Port).
				Msg("Using default port")
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	switch {
	case cfg.Basic.RawUnixSocketPermissions == "":
		cfg.Basic.UnixSocketPermissions = 0o666
	case fileModeOctalRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		rawModeUint64, _ := strconv.ParseUint(cfg.Basic.RawUnixSocketPermissions, 8, 32)

		cfg.Basic.UnixSocketPermissions = os.FileMode(rawModeUint64)
	case fileModeStringRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		mode := os.FileMode(0)

		for i, c := range cfg.Basic.RawUnixSocketPermissions {
			if c != '-' {
				// Set i-th bit from the end
				const bitsInByte = 8

				mode |= 1 << (bitsInByte - i)
			}
		}

		cfg.Basic.UnixSocketPermissions = mode
	default:
		return errUnixSocketInvalidPermissions
	}

	if cfg.Basic.UnixSocketUser != "" {
		lookup := user.Lookup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketUser) {
			lookup = user.LookupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketUser); err != nil {
			return errUnixSocketUserDoesNotExist
		}
	}

	if cfg.Basic.UnixSocketGroup != "" {
		lookup := user.LookupGroup
		if digitsRegexp.MatchString(cfg.Basic.UnixSocketGroup) {
			lookup = user.LookupGroupId
		}

		if _, err := lookup(cfg.Basic.UnixSocketGroup); err != nil {
			return errUnixSocketGroupDoesNotExist
		}
	}

	return nil
}
