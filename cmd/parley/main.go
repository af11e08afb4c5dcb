// Package main is the entry point for the parley voice assistant CLI.
//
// Usage:
//
//	parley [flags] <command> [subcommand] [args]
//
// Commands:
//
//	run        - Talk to the assistant in the terminal
//	config     - Configuration management (contexts, services)
//	tools      - List the tools advertised to the model
//	usage      - Show recorded token usage
//	devices    - List audio devices
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/parley/cmd/parley/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
