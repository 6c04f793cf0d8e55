// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"net/url"

	"codeberg.org/refill/refill/core/untrusted"
	"codeberg.org/refill/refill/server/utils"
)

// toRoute redirects to the named route.
//
// The inertia middleware turns the 302 into a 303 after PUT, PATCH and DELETE.
func (app *App) toRoute(w http.ResponseWriter, r *http.Request, name string, params map[string]string) error {
	location, err := app.URLs.URL(name, params)
	if err != nil {
		return err
	}

	http.Redirect(w, r, location, http.StatusFound)

	return nil
}

// toRouteWith is toRoute carrying a flash for the next request.
func (app *App) toRouteWith(w http.ResponseWriter, r *http.Request, name string, flash untrusted.Flash) error {
	untrusted.SetFlash(w, r, flash)

	return app.toRoute(w, r, name, nil)
}

// back redirects to the page that submitted the request, carrying flash.
func back(w http.ResponseWriter, r *http.Request, flash untrusted.Flash) error {
	untrusted.SetFlash(w, r, flash)

	http.Redirect(w, r, previousURL(r), http.StatusFound)

	return nil
}

// invalid sends the field errors back to the submitting page.
func invalid(w http.ResponseWriter, r *http.Request, v *Validator) error {
	return back(w, r, untrusted.Flash{Errors: v.FieldErrors})
}

// previousURL is the same-origin referrer, or "/".
func previousURL(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}

	if path := utils.SanitizeReturnPath(ref.RequestURI()); path != "" {
		return path
	}

	return "/"
}

// intendedURL is where to go after signing in or confirming the password.
//
// The auth gate passes it along as ?intended= on the login page; the form
// either resubmits it or leaves it in the referrer.
func (app *App) intendedURL(r *http.Request, in Input, fallback string) (string, error) {
	target := in.String("intended")

	if target == "" {
		if ref, err := url.Parse(r.Referer()); err == nil && (ref.Host == "" || ref.Host == r.Host) {
			target = ref.Query().Get("intended")
		}
	}

	if path := utils.SanitizeReturnPath(target); path != "" {
		return path, nil
	}

	return app.URLs.URL(fallback, nil)
}
