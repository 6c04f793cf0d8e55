// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package assets provides access to the application's embedded static assets.

The tree is rooted so that build/app.js is served at /build/app.js.
*/
package assets

import (
	"io/fs"
)

// FS provides access to the embedded file system. Set by package main.
var FS fs.FS
