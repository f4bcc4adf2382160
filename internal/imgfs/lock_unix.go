//go:build !windows

package imgfs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

var errLocked = errors.New("store is locked by another handle")

// lockFile takes a non-blocking advisory lock: shared for read-only
// handles, exclusive for read-write ones.
func lockFile(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return errLocked
		}
		return err
	}
	return nil
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
