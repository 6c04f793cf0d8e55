// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware provides the HTTP middleware of Refill.

Global middleware has the [Middleware] signature and is chained by the router
in the order given in router.RegisterMiddleware. Route handlers return an
error and are adapted to http.Handler by [CatchError].
*/
package middleware
