// Package main is the leapstory command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapstory/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
