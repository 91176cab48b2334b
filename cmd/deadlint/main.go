// Command deadlint reports dead code in crates described in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/deadlint/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
