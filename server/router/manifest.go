// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"strings"

	"codeberg.org/refill/refill/server/inertia"
)

// ManifestRoute is a named route as seen by client-side URL generation.
type ManifestRoute struct {
	URI     string   `json:"uri"`
	Methods []string `json:"methods"`
}

// Manifest maps route names to their URI pattern and methods.
func (t *Table) Manifest() map[string]ManifestRoute {
	manifest := map[string]ManifestRoute{}

	for _, info := range t.Routes() {
		methods := []string{info.Method}
		if info.Method == http.MethodGet {
			methods = append(methods, http.MethodHead)
		}

		uri := strings.TrimPrefix(info.Path, "/")
		if uri == "" {
			uri = "/"
		}

		manifest[info.Name] = ManifestRoute{URI: uri, Methods: methods}
	}

	return manifest
}

// ShareManifest sends the route manifest with every page.
func ShareManifest(pages *inertia.Renderer, t *Table) {
	manifest := t.Manifest()

	pages.Share(func(*http.Request) inertia.Props {
		return inertia.Props{"routes": manifest}
	})
}
