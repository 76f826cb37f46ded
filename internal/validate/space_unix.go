//go:build !windows

package validate

import "syscall"

// freeBytes reports the free space available to unprivileged callers on
// the filesystem containing dir.
func freeBytes(dir string) (uint64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
