package main

import (
	"fmt"
	"os"

	"github.com/pendergraft/contractscan/internal/cli"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
