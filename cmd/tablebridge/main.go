// Command tablebridge serves agent tools over a remote table store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tablebridge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
