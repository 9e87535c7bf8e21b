package main

import (
	"fmt"
	"os"

	"glhost/internal/cli/commands"
)

// Set by goreleaser ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// patchelfPath pins the runpath rewriting tool for packaged builds:
	// -ldflags "-X main.patchelfPath=/usr/lib/glhost/patchelf"
	patchelfPath = ""
)

func main() {
	commands.SetVersion(version, commit, date)
	commands.SetDefaultPatchelf(patchelfPath)
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
