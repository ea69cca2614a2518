// Package main is the entry point for the bugbot CLI.
package main

import (
	"os"

	"github.com/mudlet/bugbot/cmd/bugbot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
