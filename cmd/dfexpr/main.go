// Command dfexpr builds and flattens lazy columnar expressions from scripts.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/dfexpr/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	// Commands report their own ExitErrors; anything else is a flag or
	// argument error from cobra.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
