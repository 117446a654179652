// Package main is the entry point for the refresher CLI.
package main

import (
	"fmt"
	"os"

	"refresher/internal/cli"
)

// Version information (set by the release build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(fmt.Sprintf("%s (%s, %s)", version, commit, date)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
