package daemon

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// writePIDFile creates or truncates path and writes pid followed by a
// newline. Concurrent writers of the same path are refused rather than
// interleaved.
func writePIDFile(path string, pid int) error {
	fl := flock.New(path, flock.SetPermissions(0o644))
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("lock pid file: %w", err)
	}
	if !locked {
		return fmt.Errorf("pid file %s is being written by another process", path)
	}
	defer fl.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open pid file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", pid); err != nil {
		f.Close()
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pid file: %w", err)
	}
	return nil
}
