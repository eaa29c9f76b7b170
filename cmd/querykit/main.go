// Command querykit fetches JSON resources through the query engine.
package main

import (
	"os"

	"github.com/jonwraymond/querykit/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	return cli.NewRootCmd(version).Execute()
}
