package daemon

import (
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"
)

// execve is replaced in tests.
var execve = unix.Exec

// handoff replaces the process image with program. The program is looked
// up in the current PATH when it contains no slash. On success it does not
// return.
func handoff(program string, argv, env []string) error {
	path, err := exec.LookPath(program)
	if err != nil {
		return fmt.Errorf("%s: %w", program, err)
	}
	if err := execve(path, argv, env); err != nil {
		return fmt.Errorf("%s: %w", program, err)
	}
	return nil
}
