// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/audit"
	"codeberg.org/refill/refill/core/authenticated"
)

const (
	envOutputFile  = "deploy/.env.example"
	yamlOutputFile = "deploy/config.yaml.example"
	filePerm       = 0o644

	envFileHeader = `# Refill configuration (via environment variables)
#
# Copy this file to .env and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.

`
	yamlFileHeader = `# Refill configuration (via configuration file)
#
# Copy this file to config.yaml and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.
`
	secretYAMLComment = `  # -- Signs sessions, signed links and password reset tokens.
  # Generated for this file only; changing it signs every user out.`
)

func main() {
	audit.SetDefaultLogger()

	secret := authenticated.NewSecretKeyHex()

	generateEnvFile(secret)
	generateYAMLFile(secret)
}

// generateEnvFile writes deploy/.env.example.
func generateEnvFile(secret string) {
	cfg := &config.ServerConfig{}
	cfg.SetDefaults()

	var sb strings.Builder
	sb.WriteString(envFileHeader)

	val := reflect.ValueOf(*cfg)
	typ := val.Type()

	for i := range typ.NumField() {
		structField := typ.Field(i)
		structValue := val.Field(i)

		if structValue.Kind() != reflect.Struct || structField.Name == "Build" {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n", structField.Name)

		innerTyp := structValue.Type()
		for j := range innerTyp.NumField() {
			field := innerTyp.Field(j)
			value := structValue.Field(j)

			tag, ok := field.Tag.Lookup("env")
			if !ok {
				continue
			}

			envVarName := strings.Split(tag, ",")[0]

			switch envVarName {
			case "REFILL_SECRET":
				fmt.Fprintf(&sb, "%s=\"%s\"\n", envVarName, secret)
			case "REFILL_PORT", "REFILL_HOST", "REFILL_APP_URL":
				fmt.Fprintf(&sb, "%s=\"%v\"\n", envVarName, value.Interface())
			default:
				// Slices and empty strings are left for the user to fill in.
				if value.Kind() == reflect.Slice || (value.Kind() == reflect.String && value.Len() == 0) {
					fmt.Fprintf(&sb, "# %s=\n", envVarName)
				} else {
					fmt.Fprintf(&sb, "# %s=%v\n", envVarName, value.Interface())
				}
			}
		}

		sb.WriteString("\n")
	}

	if err := os.WriteFile(envOutputFile, []byte(sb.String()), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", envOutputFile).Msg("Failed to write .env.example file")
	}

	log.Info().Str("path", envOutputFile).Msg("Successfully generated .env.example")
}

// generateYAMLFile writes deploy/config.yaml.example.
func generateYAMLFile(secret string) {
	cfg := &config.ServerConfig{}
	cfg.SetDefaults()

	cfg.Basic.Secret = secret

	var yamlContent strings.Builder

	encoderOpts := []yaml.EncodeOption{
		config.GetDurationEncoderOption(),
		yaml.Indent(2),
	}
	if err := yaml.NewEncoder(&yamlContent, encoderOpts...).Encode(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal config to YAML")
	}

	var sb strings.Builder
	sb.WriteString(yamlFileHeader)

	for line := range strings.SplitSeq(yamlContent.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Top-level keys (e.g., "basic:") are treated as section headers.
		if !strings.HasPrefix(line, " ") {
			fmt.Fprintf(&sb, "\n%s\n", line)
			continue
		}

		if strings.HasPrefix(trimmed, "secret:") {
			sb.WriteString(secretYAMLComment + "\n")
			sb.WriteString(line + "\n")

			continue
		}

		indentSize := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indentSize), trimmed)
	}

	if err := os.WriteFile(yamlOutputFile, []byte(sb.String()), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", yamlOutputFile).Msg("Failed to write config file")
	}

	log.Info().Str("path", yamlOutputFile).Msg("Successfully generated config.yaml.example")
}
