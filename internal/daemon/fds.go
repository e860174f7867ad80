package daemon

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"golang.org/x/sys/unix"
)

// maxScan bounds the descriptor range probed when the open descriptors
// cannot be listed and RLIMIT_NOFILE is unlimited or very large.
const maxScan = 1 << 20

// sanitizeDescriptors flags every descriptor from 3 up as close-on-exec so
// none of them reaches the target program. The descriptors stay usable
// until the handoff because the Go runtime owns some of them.
func sanitizeDescriptors() error {
	fds, err := openDescriptors()
	if err != nil {
		return err
	}
	for _, fd := range fds {
		if fd <= stderrSlot {
			continue
		}
		if err := setCloseOnExec(fd); err != nil {
			if errors.Is(err, unix.EBADF) {
				continue
			}
			return fmt.Errorf("fd = %d: %w", fd, err)
		}
	}
	return nil
}

// openDescriptors lists the process's descriptors, falling back to every
// number below the descriptor limit.
func openDescriptors() ([]int, error) {
	if fds, err := listDescriptors(fdDir); err == nil {
		return fds, nil
	}
	limit, err := descriptorLimit()
	if err != nil {
		return nil, err
	}
	fds := make([]int, 0, limit)
	for fd := 0; fd < limit; fd++ {
		fds = append(fds, fd)
	}
	return fds, nil
}

func listDescriptors(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fds := make([]int, 0, len(entries))
	for _, e := range entries {
		fd, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	return fds, nil
}

// descriptorLimit returns the soft RLIMIT_NOFILE, capped at maxScan.
func descriptorLimit() (int, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return 0, fmt.Errorf("query RLIMIT_NOFILE: %w", err)
	}
	if rl.Cur > maxScan {
		return maxScan, nil
	}
	return int(rl.Cur), nil
}

func setCloseOnExec(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	if flags&unix.FD_CLOEXEC != 0 {
		return nil
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC)
	return err
}

// closeAliases closes every descriptor from 3 up that refers to the same
// file as fd. An fcntl lock is dropped when the process closes any
// descriptor for the locked file, including the close performed by exec
// on a close-on-exec descriptor, so aliases of the log must be gone before
// it is locked.
func closeAliases(fd int) error {
	var want unix.Stat_t
	if err := unix.Fstat(fd, &want); err != nil {
		return fmt.Errorf("stat fd = %d: %w", fd, err)
	}
	fds, err := openDescriptors()
	if err != nil {
		return err
	}
	for _, other := range fds {
		if other <= stderrSlot || other == fd {
			continue
		}
		var st unix.Stat_t
		if err := unix.Fstat(other, &st); err != nil {
			continue
		}
		if st.Dev != want.Dev || st.Ino != want.Ino {
			continue
		}
		if err := unix.Close(other); err != nil && !errors.Is(err, unix.EBADF) {
			return fmt.Errorf("close fd = %d: %w", other, err)
		}
	}
	return nil
}
