// Package main provides the entry point for the opensrc-mcp CLI.
package main

import (
	"os"

	"github.com/dmmulroy/opensrc-mcp/cmd/opensrc-mcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
