// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "time"

const (
	defaultHTTPCacheMaxAgeSeconds               = 30
	defaultHTTPCacheStaleWhileRevalidateSeconds = 60

	defaultSessionLifetime          = 2 * time.Hour
	defaultRememberLifetime         = 30 * 24 * time.Hour
	defaultPasswordTimeout          = 3 * time.Hour
	defaultResetTokenLifetime       = time.Hour
	defaultVerificationLinkLifetime = time.Hour

	defaultDatabaseMaxConns  = 10
	defaultLimiterCacheSize  = 10_000
	defaultInertiaPageTitle  = "Refill"
	defaultApplicationName   = "Refill"
	defaultApplicationURL    = "http://localhost:8282"
	defaultRepositoryAddress = "https://codeberg.org/refill/refill"
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	cfg.Basic.AppName = defaultApplicationName
	cfg.Basic.AppURL = defaultApplicationURL
	cfg.Basic.Host = "localhost"
	cfg.Basic.Port = "8282"

	cfg.Session.Lifetime = defaultSessionLifetime
	cfg.Session.RememberLifetime = defaultRememberLifetime
	cfg.Session.PasswordTimeout = defaultPasswordTimeout
	cfg.Session.ResetTokenLifetime = defaultResetTokenLifetime
	cfg.Session.VerificationLinkLifetime = defaultVerificationLinkLifetime

	cfg.Database.Migrate = true
	cfg.Database.MaxConns = defaultDatabaseMaxConns

	cfg.Limiter.CacheSize = defaultLimiterCacheSize

	cfg.Inertia.Title = defaultInertiaPageTitle

	cfg.HTTPCache.MaxAge = defaultHTTPCacheMaxAgeSeconds * time.Second
	cfg.HTTPCache.StaleWhileRevalidate = defaultHTTPCacheStaleWhileRevalidateSeconds * time.Second

	cfg.Instance.RepoURL = defaultRepositoryAddress
	cfg.Instance.Locales = []string{"en"}

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
