// Package main provides the entry point for respkv-cli.
//
// respkv-cli sends one command to a respkv server and prints the reply,
// or opens an interactive prompt when no command is given.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/respkv/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
