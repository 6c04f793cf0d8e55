// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetDefaultLogger installs the logger used until the configuration is loaded.
//
// REFILL_LOG_FORMAT=json is honoured already, so that log collectors never see
// console lines from startup.
func SetDefaultLogger() {
	if os.Getenv("REFILL_LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

		return
	}

	log.Logger = log.Output(ConsoleWriter(os.Stderr))
}

// ConsoleWriter returns a human-readable zerolog writer for f, colored when f
// is a terminal.
func ConsoleWriter(f *os.File) io.Writer {
	return consoleWriter(f, isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func consoleWriter(out io.Writer, color bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       !color,
		TimeFormat:    time.DateTime,
		FormatPrepare: compactSpan,
	}
}

// compactSpan folds the fields of a [Span.Log] line into its message:
//
//	[user] 404 GET    /missing (not-found)
func compactSpan(m map[string]any) error {
	if sys, ok := m["sys"]; !ok || sys != "http" {
		return nil
	}

	message := fmt.Sprintf("[%s] %v %-6s %s", m["destination"], m["status_code"], m["method"], m["url"])
	if route, ok := m["route"]; ok {
		message += fmt.Sprintf(" (%s)", route)
	}

	m[zerolog.MessageFieldName] = message

	for _, key := range []string{"sys", "method", "status_code", "url", "destination", "request_id", "route"} {
		delete(m, key)
	}

	return nil
}
