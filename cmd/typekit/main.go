// Command typekit compiles, inspects and exercises type catalogs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/typekit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
