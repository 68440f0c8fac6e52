// Command racelab demonstrates lost updates and stale reads on shared memory
// under plain, visibility-only and atomic access.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/racelab/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	// Commands report their own failures in the selected format.
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	// Anything else is a usage error from flag or argument parsing.
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(cli.ExitCommandError)
}
