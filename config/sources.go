// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

// Values are layered, lowest first: SetDefaults, the YAML file, the .env
// file, the process environment.

const (
	envConfigFile      = "REFILL_CONFIGFILE"
	fallbackConfigPath = "./config.yml"
	dotEnvName         = ".env"
)

var (
	errInvalidEnv          = errors.New("invalid environment variable")
	errUnsupportedEnvField = errors.New("unsupported field type for environment variable")
	errMalformedDotEnv     = errors.New("malformed line")
)

// configFile picks the YAML file: the -config flag, then REFILL_CONFIGFILE,
// then ./config.yaml with ./config.yml as fallback. explicit is set when the
// user named the file, in which case it has to exist.
func configFile(flagValue string, flagSet bool) (path string, explicit bool) {
	if flagSet {
		return flagValue, true
	}

	if path := os.Getenv(envConfigFile); path != "" {
		return path, true
	}

	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		if _, err := os.Stat(fallbackConfigPath); err == nil {
			return fallbackConfigPath, false
		}
	}

	return defaultConfigPath, false
}

// dotEnvDirs lists where a .env file is looked for: the working directory,
// then the directory of the binary.
func dotEnvDirs() []string {
	dirs := []string{"."}

	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	return dirs
}

// loadDotEnv copies the first .env file found in dirs into the process
// environment and returns its path, or "" when there is none.
//
// Variables that are already set, even to "", are kept. The file is read
// before the YAML file is chosen, so it may set REFILL_CONFIGFILE, but the
// -config flag and a REFILL_CONFIGFILE from the environment still win.
func loadDotEnv(dirs ...string) (string, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, dotEnvName)

		data, err := os.ReadFile(path) // #nosec G304 -- fixed file name
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}

		vars, err := parseDotEnv(string(data))
		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}

		for key, value := range vars {
			if _, set := os.LookupEnv(key); set {
				continue
			}

			if err := os.Setenv(key, value); err != nil {
				return "", fmt.Errorf("%s: failed to set %s: %w", path, key, err)
			}
		}

		return path, nil
	}

	return "", nil
}

// parseDotEnv reads KEY=value lines. Blank lines and # comments are skipped,
// an "export " prefix is allowed and matching quotes around the value are
// removed.
func parseDotEnv(data string) (map[string]string, error) {
	vars := map[string]string{}

	for number, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("%w %d: %q", errMalformedDotEnv, number+1, line)
		}

		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}

		vars[key] = value
	}

	return vars, nil
}

// readYAML decodes the file at path over cfg. Keys that match no setting are
// rejected. The error quotes the offending line.
func (cfg *ServerConfig) readYAML(path string, explicit bool) error {
	data, err := os.ReadFile(path) // #nosec G304 -- only loading a config file
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		log.Info().
			Str("path", path).
			Msg("No YAML configuration file found, skipping")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Msg("Loaded configuration file")

	return nil
}

// readEnv applies the variables named by the env tags of each section.
// Without ",overwrite" a variable only fills a setting that is still empty.
// All invalid values are reported together.
func (cfg *ServerConfig) readEnv() error {
	var errs []error

	sections := reflect.ValueOf(cfg).Elem()

	for i := range sections.NumField() {
		section := sections.Field(i)
		if section.Kind() != reflect.Struct || sections.Type().Field(i).Tag.Get("yaml") == "-" {
			continue
		}

		for j := range section.NumField() {
			tag, ok := section.Type().Field(j).Tag.Lookup("env")
			if !ok {
				continue
			}

			name, options, _ := strings.Cut(tag, ",")
			field := section.Field(j)

			value, set := os.LookupEnv(name)
			if !set || (options != "overwrite" && !field.IsZero()) {
				continue
			}

			if err := setFromEnv(field.Addr().Interface(), value); err != nil {
				errs = append(errs, fmt.Errorf("%w %s=%q: %w", errInvalidEnv, name, value, err))
			}
		}
	}

	return errors.Join(errs...)
}

func setFromEnv(target any, value string) error {
	switch target := target.(type) {
	case *string:
		*target = value
	case *bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}

		*target = b
	case *int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		*target = n
	case *time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}

		*target = d
	case *[]string:
		// comma-separated, empty items dropped
		items := []string{}

		for item := range strings.SplitSeq(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}

		*target = items
	default:
		return fmt.Errorf("%w: %T", errUnsupportedEnvField, target)
	}

	return nil
}
