// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"codeberg.org/refill/refill/server/inertia"
	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/request_context"
)

// ErrorPage renders the Error page for the status and error recorded by middleware.CatchError.
func (app *App) ErrorPage(w http.ResponseWriter, r *http.Request) {
	ctx := request_context.FromRequest(r)

	status := ctx.StatusCode
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Cache-Control", "no-store")

	err := app.Pages.RenderStatus(w, r, status, "Error", inertia.Props{
		"status":  status,
		"message": publicMessage(status, ctx.RequestError),
	})
	if err != nil {
		log.Err(err).Str("request_id", ctx.RequestID).Msg("Failed to render error page")

		http.Error(w, http.StatusText(status), status)
	}
}

// publicMessage hides the text of server errors, which may carry internals.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError || err == nil {
		return http.StatusText(status)
	}

	var statuser middleware.HTTPStatuser
	if !errors.As(err, &statuser) {
		return http.StatusText(status)
	}

	return err.Error()
}
