// Package main provides the matrixctl CLI.
// matrixctl runs maintenance tasks against the attribute matrix store:
// schema migration, export and import of snapshots, and credential setup.
package main

import (
	"os"
)

var (
	// Version is set by build flags
	Version = "dev"
)

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
