package main

import (
	"os"

	"cloudnav/internal/cli"
)

// version is set via ldflags.
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
