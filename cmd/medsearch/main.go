// Package main provides the entry point for the medsearch CLI.
package main

import (
	"os"

	"github.com/medlit/medsearch/cmd/medsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
