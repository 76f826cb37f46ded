//go:build !windows

package fileutil

import (
	"errors"
	"syscall"
)

// isBusy reports whether err indicates the file is held open by another
// process. On Unix this is EBUSY or ETXTBSY (writing a running binary).
func isBusy(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETXTBSY)
}
