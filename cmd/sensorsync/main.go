// Command sensorsync replicates sensor history into a local SQLite store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sensorsync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
