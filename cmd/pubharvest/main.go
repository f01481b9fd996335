// Package main is the entry point for the pubharvest CLI.
package main

import (
	"os"

	"github.com/jmylchreest/pubharvest/cmd/pubharvest/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
