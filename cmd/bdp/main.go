// Package main is the entry point for the bdp binary.
package main

import (
	"os"

	cli "bdp/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
