// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"codeberg.org/refill/refill/server/middleware"
)

const maxInputBytes = 1 << 20

var errMalformedInput = errors.New("malformed request body")

// Input is the submitted data of a form or of a JSON request made by the client library.
type Input struct {
	json gjson.Result
	form map[string][]string
}

func readInput(r *http.Request) (Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxInputBytes))
		if err != nil {
			return Input{}, fmt.Errorf("failed to read request body: %w", err)
		}

		if !gjson.ValidBytes(body) {
			return Input{}, middleware.NewStatusError(http.StatusBadRequest, errMalformedInput)
		}

		return Input{json: gjson.ParseBytes(body)}, nil
	}

	if err := r.ParseForm(); err != nil {
		return Input{}, middleware.NewStatusError(http.StatusBadRequest, fmt.Errorf("%w: %w", errMalformedInput, err))
	}

	return Input{form: r.PostForm}, nil
}

// String returns the trimmed value of field. Passwords should use Raw.
func (in Input) String(field string) string {
	return strings.TrimSpace(in.Raw(field))
}

// Raw returns the value of field as submitted.
func (in Input) Raw(field string) string {
	if in.form != nil {
		if values := in.form[field]; len(values) > 0 {
			return values[0]
		}

		return ""
	}

	value := in.json.Get(gjson.Escape(field))
	if value.Type == gjson.String || value.Type == gjson.Number {
		return value.String()
	}

	return ""
}

// Bool reports whether a checkbox-like field is set.
func (in Input) Bool(field string) bool {
	if in.form != nil {
		switch in.String(field) {
		case "1", "on", "true", "yes":
			return true
		default:
			return false
		}
	}

	return in.json.Get(gjson.Escape(field)).Bool()
}
