// Copyright 2025, the Refill contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// PrintRoutes writes the route table as aligned columns.
func PrintRoutes(w io.Writer, t *Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "METHOD\tPATH\tNAME\tGATES")

	for _, route := range t.Routes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", route.Method, route.Path, route.Name, strings.Join(route.Gates, ", "))
	}

	return tw.Flush()
}
