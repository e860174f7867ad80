package daemon

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Standard descriptor slots.
const (
	stdinSlot  = 0
	stdoutSlot = 1
	stderrSlot = 2
)

// SlotMismatchError reports a descriptor that did not land on the slot it
// was opened for.
type SlotMismatchError struct {
	Name string
	Slot int
	Got  int
}

func (e *SlotMismatchError) Error() string {
	return fmt.Sprintf("%s opened on descriptor %d, want %d", e.Name, e.Got, e.Slot)
}

// bindSlot frees slot and opens a replacement that must land on it. open
// must return the lowest free descriptor (open(2), dup(2)); any other
// result is closed and reported as a *SlotMismatchError.
func bindSlot(slot int, name string, open func() (int, error)) error {
	if err := unix.Close(slot); err != nil && !errors.Is(err, unix.EBADF) {
		return fmt.Errorf("close %s: %w", name, err)
	}
	fd, err := open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	if fd != slot {
		unix.Close(fd)
		return &SlotMismatchError{Name: name, Slot: slot, Got: fd}
	}
	return nil
}

// openLog opens path for appending without close-on-exec, so the
// descriptor survives the handoff.
func openLog(path string) func() (int, error) {
	return func() (int, error) {
		return unix.Open(path, unix.O_WRONLY|unix.O_APPEND|unix.O_CREAT, 0o640)
	}
}

func openDevNull() (int, error) {
	return unix.Open("/dev/null", unix.O_RDONLY, 0)
}

func dupStdout() (int, error) {
	return unix.Dup(stdoutSlot)
}

// verifyDetached fails if any standard descriptor still refers to a
// terminal.
func verifyDetached() error {
	for _, fd := range []int{stdinSlot, stdoutSlot, stderrSlot} {
		if term.IsTerminal(fd) {
			return fmt.Errorf("descriptor %d is still a terminal", fd)
		}
	}
	return nil
}
