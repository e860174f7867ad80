package daemon

import (
	"fmt"
	"os"
	"os/exec"
)

// executable is the binary re-entered for each stage; tests point it at a
// freshly built daemonizer.
var executable = os.Executable

// stageCommand prepares a re-execution of this binary in a later stage.
// The stage inherits the environment, working directory and standard
// descriptors, so failures before the log is bound still reach the
// caller's terminal.
func stageCommand(args []string) (*exec.Cmd, error) {
	exe, err := executable()
	if err != nil {
		return nil, fmt.Errorf("find executable: %w", err)
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}
