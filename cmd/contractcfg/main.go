// Command contractcfg builds, edits and reports configurable contract line
// trees stored in SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/contractcfg/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
