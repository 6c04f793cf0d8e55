// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
This package r/w public state in a request.

Public state -- HTTP cookies -- is received from the user agent and can be anything.

The user controls all of it. Anything that must be trusted (the session) is
signed by package authenticated before it is stored here.
*/
package untrusted
