// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package inertia

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/a-h/templ"

	"codeberg.org/refill/refill/server/request_context"
)

// RootViewData is the input of the HTML document served on full page loads.
type RootViewData struct {
	Title    string
	Locale   string
	PageJSON string
	Version  string
}

// RootView renders the HTML shell that boots the client application.
//
// The page object is placed in the data-page attribute of #app.
func RootView(data RootViewData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		assetQuery := "?v=" + url.QueryEscape(data.Version)

		parts := []string{
			"<!DOCTYPE html>\n<html lang=\"", templ.EscapeString(data.Locale), "\">\n<head>\n",
			"<meta charset=\"utf-8\">\n",
			"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n",
			"<title>", templ.EscapeString(data.Title), "</title>\n",
			"<link rel=\"stylesheet\" href=\"/build/app.css", templ.EscapeString(assetQuery), "\">\n",
			"<script type=\"module\" src=\"/build/app.js", templ.EscapeString(assetQuery), "\"></script>\n",
			"</head>\n<body>\n",
			"<div id=\"app\" data-page=\"", templ.EscapeString(data.PageJSON), "\"></div>\n",
			"</body>\n</html>\n",
		}

		for _, part := range parts {
			if _, err := io.WriteString(w, part); err != nil {
				return err
			}
		}

		return nil
	})
}

func localeOf(r *http.Request) string {
	return request_context.FromRequest(r).Locale.String()
}
