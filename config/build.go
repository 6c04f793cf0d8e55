// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"runtime/debug"
	"strings"
	"time"
)

// BuildVersion is the latest tagged release of Refill. Binaries installed
// with "go install ...@version" report that version instead.
const BuildVersion string = "v0.4.0"

const shortRevisionLength = 8

// buildInfo describes the running binary, as stamped by the Go toolchain.
type buildInfo struct {
	ModuleVersion string
	GoVersion     string
	VcsRevision   string
	VcsTime       time.Time
	VcsModified   bool
}

// Version is the module version of the binary, or BuildVersion for
// development builds.
func (b *buildInfo) Version() string {
	if b.ModuleVersion == "" || b.ModuleVersion == "(devel)" {
		return BuildVersion
	}

	return b.ModuleVersion
}

// Revision is the commit date and short hash, e.g. 2025-03-01-1a2b3c4d, with
// "+dirty" for builds from a modified tree. It is "unknown" outside a checkout.
func (b *buildInfo) Revision() string {
	if b.VcsRevision == "" {
		return "unknown"
	}

	revision := b.VcsRevision
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}

	if !b.VcsTime.IsZero() {
		revision = b.VcsTime.UTC().Format(time.DateOnly) + "-" + revision
	}

	if b.VcsModified {
		revision += "+dirty"
	}

	return revision
}

func (b *buildInfo) load() {
	if info, ok := debug.ReadBuildInfo(); ok {
		*b = newBuildInfo(info)
	}
}

func newBuildInfo(info *debug.BuildInfo) buildInfo {
	b := buildInfo{
		ModuleVersion: info.Main.Version,
		GoVersion:     strings.TrimPrefix(info.GoVersion, "go"),
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			b.VcsRevision = setting.Value
		case "vcs.time":
			// RFC 3339, see "go help buildinfo"
			b.VcsTime, _ = time.Parse(time.RFC3339, setting.Value)
		case "vcs.modified":
			b.VcsModified = setting.Value == "true"
		}
	}

	return b
}
