package daemon

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// ErrLogLocked means another daemon already writes to the log file.
var ErrLogLocked = errors.New("log file is locked by another process")

func sentinel(typ int16) *unix.Flock_t {
	return &unix.Flock_t{Type: typ, Whence: io.SeekStart, Start: 0, Len: 1}
}

// lockSentinel takes an exclusive advisory lock on the first byte of fd.
// It never waits: a held lock fails with ErrLogLocked.
func lockSentinel(fd int) error {
	err := unix.FcntlFlock(uintptr(fd), unix.F_SETLK, sentinel(unix.F_WRLCK))
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES) {
		if pid := lockHolder(fd); pid > 0 {
			return fmt.Errorf("%w (pid %d)", ErrLogLocked, pid)
		}
		return ErrLogLocked
	}
	return fmt.Errorf("lock log file: %w", err)
}

// lockHolder returns the pid holding a conflicting lock on fd's sentinel
// byte, or 0 if none is known.
func lockHolder(fd int) int {
	lk := sentinel(unix.F_WRLCK)
	if err := unix.FcntlFlock(uintptr(fd), unix.F_GETLK, lk); err != nil {
		return 0
	}
	if lk.Type == unix.F_UNLCK {
		return 0
	}
	return int(lk.Pid)
}
