// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"errors"
	"maps"
	"net/http"
	"net/http/httptest"

	"github.com/rs/zerolog/log"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/audit"
	"codeberg.org/refill/refill/server/request_context"
)

// HTTPStatuser is implemented by errors that map to a specific response status.
type HTTPStatuser interface {
	HTTPStatus() int
}

// ResponseHeaderer is implemented by errors that add headers to the error response,
// such as Retry-After.
type ResponseHeaderer interface {
	ResponseHeader() http.Header
}

// ErrorRenderer writes a complete error response.
//
// It reads the status and error from request_context.FromRequest(r).
type ErrorRenderer func(w http.ResponseWriter, r *http.Request)

// CatchError wraps HTTP handlers that return an error, providing centralized error handling,
// response buffering, and request logging.
//
// The handler's output is buffered. After it runs:
//   - If it returned an error, the buffered response is discarded and renderError
//     writes the error page. The status is taken from the error when it implements
//     [HTTPStatuser], from the buffered response when that is already an error status,
//     and is 500 otherwise.
//   - If it wrote 404 without an error, the buffered response is also replaced
//     by the error page.
//   - Otherwise the buffered response is written to the client.
//
// Finally, it logs the completed request via the audit package.
func CatchError(handler HandlerFunc, renderError ErrorRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		span := audit.Span{
			Destination: audit.ToUser,
			RequestID:   ctx.RequestID,
			Method:      r.Method,
			URL:         r.URL.String(),
		}

		r = r.WithContext(span.Begin(r.Context()))
		defer span.End()

		recorder := httptest.NewRecorder()

		err := handler(recorder, r)

		ctx.RequestError = err

		switch {
		case err != nil || recorder.Code == http.StatusNotFound:
			ctx.StatusCode = statusFor(err, recorder.Code)

			var headerer ResponseHeaderer
			if errors.As(err, &headerer) {
				maps.Copy(w.Header(), headerer.ResponseHeader())
			}

			counter := &countingWriter{ResponseWriter: w}
			renderError(counter, r)

			span.Size = counter.n

		default:
			if recorder.Code == 0 {
				recorder.Code = http.StatusOK
			}

			ctx.StatusCode = recorder.Code
			span.Size = recorder.Body.Len()

			mergeHeader(w.Header(), recorder.Header())
			w.WriteHeader(recorder.Code)

			if _, err := recorder.Body.WriteTo(w); err != nil {
				log.Err(err).Msg("Failed to write response body")
			}
		}

		span.End()

		span.Route = ctx.RouteName
		span.StatusCode = ctx.StatusCode
		span.Error = ctx.RequestError

		if !config.Global.ShouldSkipServerLogging(r.URL.Path) {
			span.Log()
		}
	}
}

// statusFor picks the response status for a failed handler.
func statusFor(err error, recorded int) int {
	var statuser HTTPStatuser
	if errors.As(err, &statuser) {
		return statuser.HTTPStatus()
	}

	if recorded >= http.StatusBadRequest {
		return recorded
	}

	return http.StatusInternalServerError
}

// mergeHeader copies src into dst. Cookies are appended, so that cookies set by
// earlier middleware survive.
func mergeHeader(dst, src http.Header) {
	for key, values := range src {
		if key == "Set-Cookie" {
			dst[key] = append(dst[key], values...)

			continue
		}

		dst[key] = values
	}
}

type countingWriter struct {
	http.ResponseWriter

	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.ResponseWriter.Write(p)
	c.n += n

	return n, err
}

// StatusError is an error with a fixed response status. Header, when set,
// is added to the error response.
type StatusError struct {
	Status int
	Err    error
	Header http.Header
}

// NewStatusError wraps err with status. A nil err is replaced by the status text.
func NewStatusError(status int, err error) *StatusError {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	return &StatusError{Status: status, Err: err}
}

func (e *StatusError) Error() string   { return e.Err.Error() }
func (e *StatusError) Unwrap() error   { return e.Err }
func (e *StatusError) HTTPStatus() int { return e.Status }

func (e *StatusError) ResponseHeader() http.Header { return e.Header }
