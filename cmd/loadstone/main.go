// Command loadstone computes deterministic mod load orders from
// declarative ordering rules.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/loadstone/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
