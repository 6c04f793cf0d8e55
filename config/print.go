// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

const redactedValue = "[redacted]"

func (cfg *ServerConfig) print() {
	log.Info().
		Str("version", cfg.Build.Version()).
		Str("revision", cfg.Build.Revision()).
		Str("go", cfg.Build.GoVersion).
		Str("cacheid", cfg.Instance.FileServerCacheID).
		Msg("Starting Refill")

	configYAML, err := cfg.redactedYAML()
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config to YAML for printing")

		return
	}

	log.Info().
		Msg("Application configuration:")
	fmt.Fprintln(os.Stderr, string(configYAML))
}

// redactedYAML marshals a shallow copy of cfg with secrets removed.
func (cfg *ServerConfig) redactedYAML() ([]byte, error) {
	printableConfig := *cfg

	if printableConfig.Basic.Secret != "" {
		printableConfig.Basic.Secret = redactedValue
	}

	if printableConfig.Database.URL != "" {
		printableConfig.Database.URL = redactDatabaseURL(printableConfig.Database.URL)
	}

	return yaml.MarshalWithOptions(
		printableConfig,
		GetDurationEncoderOption(),
	)
}

// redactDatabaseURL hides the password of a connection URL.
func redactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return redactedValue
	}

	return u.Redacted()
}
