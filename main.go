// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Refill is the server half of a starter kit for single-page applications: a
named route table with per-route gates, session authentication and the
Inertia page protocol.
*/
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeberg.org/refill/refill/config"
	"codeberg.org/refill/refill/core/audit"
	"codeberg.org/refill/refill/core/users"
	"codeberg.org/refill/refill/core/users/postgres"
	"codeberg.org/refill/refill/server/assets"
	"codeberg.org/refill/refill/server/gate"
	"codeberg.org/refill/refill/server/inertia"
	"codeberg.org/refill/refill/server/router"
	"codeberg.org/refill/refill/server/routes"
)

const (
	// Values for http.Server timeouts.
	// ref: gosec: G112
	readHeaderTimeout time.Duration = 15 * time.Second
	readTimeout       time.Duration = 15 * time.Second
	writeTimeout      time.Duration = 10 * time.Second
	idleTimeout       time.Duration = 30 * time.Second

	serverShutdownDeadline time.Duration = 5 * time.Second
)

var (
	errChmodSocket = errors.New("failed to change unix socket permissions")
	errChownSocket = errors.New("failed to change unix socket ownership")
)

// embeddedContent holds the built client bundle.
//
//go:embed assets/build assets/robots.txt
var embeddedContent embed.FS

//nolint:gochecknoinits
func init() {
	sub, err := fs.Sub(embeddedContent, "assets")
	if err != nil {
		panic(err)
	}

	assets.FS = sub
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

// run starts the server and blocks until it is shut down.
//
//nolint:funlen
func run() error {
	audit.SetDefaultLogger()

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openUserStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	limiters, err := gate.NewLimiters(config.Global.Limiter.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to create throttle buckets: %w", err)
	}

	app := &routes.App{
		Pages:    inertia.New(config.Global.Inertia.Version, config.Global.Inertia.Title),
		Users:    store,
		Keys:     config.Global.Keys,
		Notifier: users.LogNotifier{},
	}

	handler, err := router.New(app, limiters)
	if err != nil {
		return err
	}

	if config.PrintRoutesRequested() {
		return router.PrintRoutes(os.Stdout, handler.Table())
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	listener, err := chooseListener(ctx)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		if ctx.Err() != nil {
			log.Info().Msg("Shutdown signal received, shutting down server...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownDeadline)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info().
		Int("throttle_buckets", limiters.Len()).
		Msg("Server exited gracefully")

	return nil
}

// openUserStore returns the Postgres store when a database is configured,
// and an in-memory store otherwise.
func openUserStore(ctx context.Context) (users.Store, func(), error) {
	cfg := config.Global.Database

	if cfg.URL == "" {
		log.Warn().Msg("No database configured, users are kept in memory and lost on restart")

		return users.NewMemoryStore(), func() {}, nil
	}

	if cfg.Migrate {
		if err := postgres.Migrate(cfg.URL); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		log.Info().Msg("Database schema is up to date")
	}

	store, err := postgres.Open(ctx, cfg.URL, cfg.MaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	return store, store.Close, nil
}

func chooseListener(ctx context.Context) (net.Listener, error) {
	// Check if we should use a Unix domain socket
	if config.Global.Basic.UnixSocket != "" {
		unixAddr := config.Global.Basic.UnixSocket

		unixListener, err := (&net.ListenConfig{}).Listen(ctx, "unix", unixAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to start Unix socket listener on %v: %w", unixAddr, err)
		}

		if err = setupSocket(); err != nil {
			_ = unixListener.Close()

			return nil, err
		}

		log.Info().
			Str("address", unixAddr).
			Msg("Listening on Unix domain socket")

		return unixListener, nil
	}

	addr := net.JoinHostPort(config.Global.Basic.Host, config.Global.Basic.Port)

	tcpListener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start TCP listener on %v: %w", addr, err)
	}

	addr = tcpListener.Addr().String()

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		_ = tcpListener.Close()

		return nil, fmt.Errorf("failed to parse listener address %q: %w", addr, err)
	}

	log.Info().
		Str("address", addr).
		Str("port", port).
		Str("url", config.Global.Basic.AppURL).
		Msg("Listening on address")

	return tcpListener, nil
}

func setupSocket() error {
	cfg := config.Global.Basic

	if cfg.UnixSocket == "" {
		return nil
	}

	uid, gid := -1, -1

	var err error

	if cfg.UnixSocketUser != "" {
		uid, err = parseUserOrGroupID(cfg.UnixSocketUser, "user")
		if err != nil {
			return err
		}
	}

	if cfg.UnixSocketGroup != "" {
		gid, err = parseUserOrGroupID(cfg.UnixSocketGroup, "group")
		if err != nil {
			return err
		}
	}

	if uid != -1 || gid != -1 {
		if err := os.Chown(cfg.UnixSocket, uid, gid); err != nil {
			return fmt.Errorf("%w: %w", errChownSocket, err)
		}
	}

	if err := os.Chmod(cfg.UnixSocket, cfg.UnixSocketPermissions); err != nil {
		return fmt.Errorf("%w: %w", errChmodSocket, err)
	}

	return nil
}

// parseUserOrGroupID resolves a numeric ID or a user/group name.
func parseUserOrGroupID(value, kind string) (int, error) {
	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}

	var idStr string

	if kind == "user" {
		u, err := user.Lookup(value)
		if err != nil {
			return -1, fmt.Errorf("failed to lookup user '%s': %w", value, err)
		}

		idStr = u.Uid
	} else {
		g, err := user.LookupGroup(value)
		if err != nil {
			return -1, fmt.Errorf("failed to lookup group '%s': %w", value, err)
		}

		idStr = g.Gid
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return -1, fmt.Errorf("failed to parse %s ID from looked-up value '%s': %w", kind, value, err)
	}

	return id, nil
}
