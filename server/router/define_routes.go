// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"fmt"
	"io/fs"
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"time"

	"github.com/rs/zerolog/log"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/server/assets"
	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/middleware"
	"codeberg.org/refill/refill/server/routes"
)

// DefineRoutes registers every route of the application on t.
//
// Registration errors are collected by the table and reported by Seal.
func DefineRoutes(t *Table, app *routes.App, limiters *gate.Limiters) {
	main := routes.NewMainController(app)

	_ = t.Get("/", app.Page("index"), Options{Name: "home"})
	_ = t.Get("/refill", main.IndexRefill, Options{Name: "refill.index"})
	_ = t.Get("/dashboard", app.Page("Dashboard"), Options{
		Name:  "dashboard",
		Gates: []gate.Gate{gate.Authenticate(), gate.EnsureEmailVerified()},
	})

	defineSettingsRoutes(t, app, limiters)
	defineAuthRoutes(t, app, limiters)
	defineAssetRoutes(t)

	if config.Global.Development.InDevelopment {
		defineDebugRoutes(t)
	}
}

// New builds the application handler: the sealed route table behind the
// global middleware chain. app.URLs is pointed at the new table.
func New(app *routes.App, limiters *gate.Limiters) (*Router, error) {
	table := NewTable(app.ErrorPage)
	app.URLs = table

	DefineRoutes(table, app, limiters)

	if err := table.Seal(); err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}

	app.Pages.Share(app.SharedProps)
	ShareManifest(app.Pages, table)

	router := NewRouter(table)
	if err := router.RegisterMiddleware(app); err != nil {
		return nil, err
	}

	return router, nil
}

func defineAssetRoutes(t *Table) {
	files := fileServer()

	_ = t.Get("/build/{path...}", files, Options{Name: "build"})
	_ = t.Get("/robots.txt", files, Options{Name: "robots"})
}

// Serve static files from embedded assets.
func fileServer() middleware.HandlerFunc {
	fileServer := http.FileServer(http.FS(assets.FS))

	return func(w http.ResponseWriter, r *http.Request) error {
		// Using a strong ETag for static files embedded via go:embed
		// ref: https://www.rfc-editor.org/rfc/rfc9110#weak.and.strong.validators
		//
		// Since go:embed requires rebuilding when files change, we use a per-instance
		// cache ID to ensure browsers fetch fresh content after any deployment.
		w.Header().Set("ETag", `"`+config.Global.Instance.FileServerCacheID+`"`)

		// no directory listings
		info, err := fs.Stat(assets.FS, r.URL.Path[1:])
		if err != nil || info.IsDir() {
			return middleware.NewStatusError(http.StatusNotFound, nil)
		}

		fileServer.ServeHTTP(w, r)

		return nil
	}
}

var flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})

func defineDebugRoutes(t *Table) {
	if err := flightRecorder.Start(); err != nil {
		log.Err(err).Msg("Failed to start flight recorder")
	}

	_ = t.Get("/debug/pprof", handler(pprof.Index), Options{Name: "debug.pprof"})
	_ = t.Get("/debug/pprof/cmdline", handler(pprof.Cmdline), Options{Name: "debug.pprof.cmdline"})
	_ = t.Get("/debug/pprof/profile", handler(pprof.Profile), Options{Name: "debug.pprof.profile"})
	_ = t.Get("/debug/pprof/symbol", handler(pprof.Symbol), Options{Name: "debug.pprof.symbol"})
	_ = t.Get("/debug/pprof/trace", handler(pprof.Trace), Options{Name: "debug.pprof.trace"})
	_ = t.Get("/debug/pprof/{profile}", handler(pprof.Index), Options{Name: "debug.pprof.named"})
	_ = t.Get("/debug/flight", handler(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = flightRecorder.WriteTo(w)
	}), Options{Name: "debug.flight"})
}

// handler adapts a plain http.HandlerFunc to the table.
func handler(h http.HandlerFunc) middleware.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		h(w, r)

		return nil
	}
}
