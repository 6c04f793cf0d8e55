// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"net"
	"net/http"
	"strings"
)

// IsConnectionSecure returns whether a connection is secure.
//
// Target environments are (containerized and bare metal):
//   - Internet -> reverse proxy -> application
//   - LAN -> reverse proxy -> application
//   - localhost -> application
//
// X-Forwarded-Proto is only trusted from private and loopback peers.
func IsConnectionSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	parsedIP := net.ParseIP(remoteHost(r))
	if parsedIP == nil {
		return false
	}

	if (parsedIP.IsPrivate() || parsedIP.IsLoopback()) && r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}

	return false
}

// ClientIP returns the address of the client that sent r.
//
// The first X-Forwarded-For entry is used when the direct peer is a private
// or loopback address, the peer address otherwise.
func ClientIP(r *http.Request) string {
	host := remoteHost(r)

	peer := net.ParseIP(host)
	if peer != nil && (peer.IsPrivate() || peer.IsLoopback()) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}

	return host
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// IsSafeMethod reports whether method is read-only per RFC 9110.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
