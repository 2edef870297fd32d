// Package main is the entry point for the qres CLI tool.
package main

import (
	"os"

	"github.com/aidanlsb/qres/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
