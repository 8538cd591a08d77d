// Command nest serves structured company search over Arrow Flight and HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/hugr-lab/nest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
