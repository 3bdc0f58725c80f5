// Command abs-provision borrows ABS hosts for Litmus acceptance runs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/flo-mic/absprovision/internal/cmd"
)

func main() {
	if err := cmd.Root().Execute(); err != nil {
		var exit *cmd.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
