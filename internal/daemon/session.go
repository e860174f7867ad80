package daemon

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// createSession makes the calling process the leader of a new session with
// no controlling terminal.
func createSession() error {
	sid, err := unix.Setsid()
	if err != nil {
		return fmt.Errorf("setsid: %w", err)
	}
	if pid := unix.Getpid(); sid != pid {
		return fmt.Errorf("setsid returned session %d, want %d", sid, pid)
	}
	return nil
}
