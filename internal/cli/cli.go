// Package cli provides the command-line interface for StockAnalyzer
package cli

import (
	"fmt"
	"os"
)

// Version is the release shown by the version command.
const Version = "1.0.0"

// Run starts the CLI application
func Run() {
	if err := execute(newApp(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs the command line and releases shared resources whether or
// not the command failed.
func execute(a *app, args []string) error {
	defer a.close()
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	return cmd.Execute()
}
