package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"daemonizer/internal/termstyle"
)

// ExitError carries a process exit status whose diagnostic has already
// been written.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// UsageError is a command line mistake. It is printed with the usage text
// and exits with Code.
type UsageError struct {
	Err  error
	Code int
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Execute runs root and maps its result to a process exit status.
func Execute(root *cobra.Command) int {
	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	return report(cmd, root.ErrOrStderr(), err)
}

func report(cmd *cobra.Command, stderr io.Writer, err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "Error: %v\n", usageErr.Err)
		if cmd != nil {
			fmt.Fprint(stderr, cmd.UsageString())
		}
		return usageErr.Code
	}
	fmt.Fprintf(stderr, "%s %v\n", termstyle.ErrorPrefix(), err)
	return 1
}
