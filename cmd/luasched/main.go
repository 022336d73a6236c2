// Package main is the entry point for the luasched CLI.
//
// Usage:
//
//	luasched [flags] <command> [args]
//
// Commands:
//
//	run        - Run a Lua script on the scheduler
//	version    - Show version information
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/haivivi/luasched/cmd/luasched/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
