//go:build windows

package imgfs

import "os"

// Windows builds rely on the in-process RWMutex only.
func lockFile(_ *os.File, _ bool) error { return nil }

func unlockFile(_ *os.File) error { return nil }
