// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package inertia

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
)

// SharedProps computes props merged into every page. Page props win on conflict.
type SharedProps func(r *http.Request) Props

// Renderer renders page objects.
type Renderer struct {
	version string
	title   string
	shared  []SharedProps
}

// New returns a renderer for the given asset version. title is the document
// title of the root view.
func New(version, title string) *Renderer {
	return &Renderer{version: version, title: title}
}

// Version is the current asset version.
func (rd *Renderer) Version() string {
	return rd.version
}

// Share registers props sent with every page. Not safe to call while serving.
func (rd *Renderer) Share(f SharedProps) {
	rd.shared = append(rd.shared, f)
}

// Page builds the page object for component without writing anything.
func (rd *Renderer) Page(r *http.Request, component string, props Props) (Page, error) {
	merged := Props{}

	for _, f := range rd.shared {
		for k, v := range f(r) {
			merged[k] = v
		}
	}

	for k, v := range props {
		merged[k] = v
	}

	resolved, err := resolveProps(r, component, merged)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Component: component,
		Props:     resolved,
		URL:       r.URL.RequestURI(),
		Version:   rd.version,
	}, nil
}

// Render writes component with props as JSON for Inertia requests and as
// the HTML root view otherwise.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, component string, props Props) error {
	return rd.RenderStatus(w, r, http.StatusOK, component, props)
}

// RenderStatus is Render with an explicit status code.
func (rd *Renderer) RenderStatus(w http.ResponseWriter, r *http.Request, status int, component string, props Props) error {
	page, err := rd.Page(r, component, props)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(page); err != nil {
		return fmt.Errorf("failed to encode page %s: %w", component, err)
	}

	addVary(w.Header())

	if IsInertiaRequest(r) {
		w.Header().Set(HeaderInertia, "true")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		_, err := buf.WriteTo(w)

		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	return RootView(RootViewData{
		Title:    rd.title,
		Locale:   localeOf(r),
		PageJSON: string(bytes.TrimSpace(buf.Bytes())),
		Version:  rd.version,
	}).Render(r.Context(), w)
}

// resolveProps applies partial reload filtering and evaluates lazy props.
func resolveProps(r *http.Request, component string, props Props) (map[string]any, error) {
	partial := IsInertiaRequest(r) && r.Header.Get(HeaderPartialComponent) == component
	only := splitHeader(r, HeaderPartialData)
	except := splitHeader(r, HeaderPartialExcept)

	out := make(map[string]any, len(props))

	for key, value := range props {
		if partial {
			if len(only) > 0 && !slices.Contains(only, key) {
				continue
			}

			if slices.Contains(except, key) {
				continue
			}
		} else if _, ok := value.(OptionalProp); ok {
			continue
		}

		switch v := value.(type) {
		case LazyProp:
			resolved, err := v()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve prop %s: %w", key, err)
			}

			out[key] = resolved
		case OptionalProp:
			resolved, err := v()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve prop %s: %w", key, err)
			}

			out[key] = resolved
		default:
			out[key] = value
		}
	}

	return out, nil
}

// Location sends the client to url with a full page visit.
//
// Inertia requests get 409 with X-Inertia-Location, others a 303 redirect.
func Location(w http.ResponseWriter, r *http.Request, url string) {
	if IsInertiaRequest(r) {
		w.Header().Set(HeaderLocation, url)
		w.WriteHeader(http.StatusConflict)

		return
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}
