// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"codeberg.org/refill/refill/core/authenticated"
	"codeberg.org/refill/refill/core/idgen"
)

// Global exposes the server configuration.
var Global ServerConfig

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		AppName                  string      `env:"REFILL_APP_NAME,overwrite" yaml:"appName"`
		AppURL                   string      `env:"REFILL_APP_URL,overwrite" yaml:"appUrl"`
		Host                     string      `env:"REFILL_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"REFILL_PORT,overwrite" yaml:"port"`
		UnixSocket               string      `env:"REFILL_UNIXSOCKET" yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"REFILL_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
		UnixSocketUser           string      `env:"REFILL_UNIXSOCKET_USER" yaml:"unixSocketUser"`
		UnixSocketGroup          string      `env:"REFILL_UNIXSOCKET_GROUP" yaml:"unixSocketGroup"`
		// hex of the v4.public secret key
		Secret string `env:"REFILL_SECRET" yaml:"secret"`
	} `yaml:"basic"`

	Session struct {
		Lifetime                 time.Duration `env:"REFILL_SESSION_LIFETIME,overwrite" yaml:"lifetime"`
		RememberLifetime         time.Duration `env:"REFILL_SESSION_REMEMBER_LIFETIME,overwrite" yaml:"rememberLifetime"`
		PasswordTimeout          time.Duration `env:"REFILL_SESSION_PASSWORD_TIMEOUT,overwrite" yaml:"passwordTimeout"`
		ResetTokenLifetime       time.Duration `env:"REFILL_SESSION_RESET_TOKEN_LIFETIME,overwrite" yaml:"resetTokenLifetime"`
		VerificationLinkLifetime time.Duration `env:"REFILL_SESSION_VERIFICATION_LINK_LIFETIME,overwrite" yaml:"verificationLinkLifetime"`
	} `yaml:"session"`

	Database struct {
		// Postgres connection string. Users are kept in memory when empty.
		URL      string `env:"REFILL_DATABASE_URL,overwrite" yaml:"url"`
		Migrate  bool   `env:"REFILL_DATABASE_MIGRATE,overwrite" yaml:"migrate"`
		MaxConns int    `env:"REFILL_DATABASE_MAX_CONNS,overwrite" yaml:"maxConns"`
	} `yaml:"database"`

	Limiter struct {
		// Number of throttle buckets kept before the least recently used is dropped.
		CacheSize int `env:"REFILL_LIMITER_CACHE_SIZE,overwrite" yaml:"cacheSize"`
	} `yaml:"limiter"`

	Inertia struct {
		// Asset version. Defaults to the per-process cache id.
		Version string `env:"REFILL_INERTIA_VERSION,overwrite" yaml:"version"`
		Title   string `env:"REFILL_INERTIA_TITLE,overwrite" yaml:"title"`
	} `yaml:"inertia"`

	HTTPCache struct {
		MaxAge               time.Duration `env:"REFILL_CACHE_CONTROL_MAX_AGE,overwrite" yaml:"cacheControlMaxAge"`
		StaleWhileRevalidate time.Duration `env:"REFILL_CACHE_CONTROL_STALE_WHILE_REVALIDATE,overwrite" yaml:"cacheControlStaleWhileRevalidate"`
	} `yaml:"httpCache"`

	Instance struct {
		StartingTime      string         `yaml:"-"`
		FileServerCacheID string         `yaml:"-"`
		RepoURL           string         `env:"REFILL_REPO_URL,overwrite" yaml:"repoUrl"`
		Locales           []string       `env:"REFILL_LOCALES,overwrite" yaml:"locales"`
		LocaleTags        []language.Tag `yaml:"-"`
	} `yaml:"instance"`

	Development struct {
		InDevelopment bool `env:"REFILL_DEV" yaml:"inDevelopment"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"REFILL_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"REFILL_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"REFILL_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`

	// Keys signs sessions, signed URLs and reset tokens. Set by validateAndSet.
	Keys *authenticated.Validator `yaml:"-"`
}

// LoadConfig loads the configuration from various sources.
func (cfg *ServerConfig) LoadConfig() error {
	configFlag := parseCommandLineArgs()

	configFlagSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagSet = true
		}
	})

	cfg.SetDefaults()

	cfg.Build.load()

	cfg.Instance.FileServerCacheID = idgen.Make()
	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	dotEnv, err := loadDotEnv(dotEnvDirs()...)
	if err != nil {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	if dotEnv != "" {
		log.Info().Str("path", dotEnv).Msg("Loaded environment from .env file")
	}

	if err := cfg.readYAML(configFile(configFlag, configFlagSet)); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := cfg.readEnv(); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()

	cfg.print()

	if isContainerized() && cfg.Basic.UnixSocket == "" && cfg.Basic.Host != "0.0.0.0" && cfg.Basic.Host != "::" {
		log.Warn().
			Str("host", cfg.Basic.Host).
			Msg("Running in a containerized environment but host is not a wildcard address (e.g., '0.0.0.0' or '::'). This may prevent the service from being accessible outside the container.")
	}

	return nil
}

var staticSkippedPathPrefixes = []string{"/build/", "/favicon.ico"}

// ShouldSkipServerLogging determines if a request should bypass request logging.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	if cfg.Development.InDevelopment {
		return false
	}

	for _, prefix := range staticSkippedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// isContainerized checks for common indicators of a containerized environment.
//
// This is a heuristic and may not be 100% accurate.
func isContainerized() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if _, err := os.Stat("/.containerenv"); err == nil {
		return true
	}

	// #nosec G304 -- well-known system file
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err == nil {
		content := string(cgroup)

		return strings.Contains(content, "docker") ||
			strings.Contains(content, "kubepods") ||
			strings.Contains(content, "containerd") ||
			strings.Contains(content, "lxc") ||
			strings.Contains(content, "crio") ||
			// systemd-nspawn containers
			strings.Contains(content, ".machine")
	}

	return false
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}
