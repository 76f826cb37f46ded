//go:build windows

package fileutil

import (
	"errors"
	"syscall"
)

// Windows sharing-violation errors returned when a DLL is mapped into a
// running process.
const (
	errSharingViolation syscall.Errno = 32
	errLockViolation    syscall.Errno = 33
)

// isBusy reports whether err indicates the file is held open by another
// process, which is the common case when the game is still running.
func isBusy(err error) bool {
	return errors.Is(err, errSharingViolation) || errors.Is(err, errLockViolation)
}
