// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "flag"

const defaultConfigPath = "./config.yaml"

// parseCommandLineArgs defines and parses flags, returning the value of the "config" flag.
//
// Safe to call more than once.
func parseCommandLineArgs() string {
	if flag.Lookup("config") == nil {
		flag.String("config", defaultConfigPath, "Path to a Refill configuration file in YAML format.")
	}

	if flag.Lookup("routes") == nil {
		flag.Bool("routes", false, "Print the route table and exit.")
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	return flag.Lookup("config").Value.String()
}

// PrintRoutesRequested reports whether the -routes flag was given.
func PrintRoutesRequested() bool {
	parseCommandLineArgs()

	return flag.Lookup("routes").Value.String() == "true"
}
