// Package validate implements the pre-flight checks that guard every
// unlocker operation. All checks are pure predicates returning
// (ok, reason); the first failure aborts the whole operation before any
// filesystem mutation.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
)

// MinAppID and MaxAppID bound valid Steam-style application identifiers.
const (
	MinAppID = 1
	MaxAppID = 1<<31 - 1
)

// DefaultMinFreeBytes is the disk space required before an install (10 MiB).
const DefaultMinFreeBytes = 10 * 1024 * 1024

// probeName is the throwaway file used by the write-permission check.
const probeName = ".smd_write_test"

// Directory checks that path exists, is a directory, and is readable.
func Directory(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("game directory does not exist: %s", path)
		}
		return false, fmt.Sprintf("cannot stat game directory: %v", err)
	}
	if !info.IsDir() {
		return false, fmt.Sprintf("path is not a directory: %s", path)
	}
	if _, err := os.ReadDir(path); err != nil {
		return false, fmt.Sprintf("cannot read game directory: %v", err)
	}
	return true, ""
}

// WritePermission checks that dir is writable by creating and deleting a
// probe file. The reason on failure hints at elevated privileges since
// game directories commonly require them.
func WritePermission(dir string) (bool, string) {
	if _, err := os.Stat(dir); err != nil {
		return false, fmt.Sprintf("directory does not exist: %s", dir)
	}

	probe := filepath.Join(dir, probeName)
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		if os.IsPermission(err) {
			return false, fmt.Sprintf("no write permission for %s (try elevated privileges)", dir)
		}
		return false, fmt.Sprintf("cannot write to %s: %v", dir, err)
	}
	os.Remove(probe)
	return true, ""
}

// DiskSpace checks that dir has at least minBytes free. A failing space
// query is treated as a pass: the check is a convenience, not a gate on
// exotic filesystems that cannot report free space.
func DiskSpace(dir string, minBytes uint64) (bool, string) {
	free, err := freeBytes(dir)
	if err != nil {
		return true, ""
	}
	if free < minBytes {
		return false, fmt.Sprintf("insufficient disk space: %.1fMB free, %.1fMB required",
			float64(free)/1024/1024, float64(minBytes)/1024/1024)
	}
	return true, ""
}

// AppID checks that id is a valid application identifier.
func AppID(id int) (bool, string) {
	if id < MinAppID {
		return false, fmt.Sprintf("invalid app id: %d (must be positive)", id)
	}
	if id > MaxAppID {
		return false, fmt.Sprintf("app id too large: %d", id)
	}
	return true, ""
}

// DLCIDs checks that every id in the list is a valid identifier.
// An empty list is valid.
func DLCIDs(ids []int) (bool, string) {
	for _, id := range ids {
		if id < MinAppID {
			return false, fmt.Sprintf("invalid DLC id: %d (must be positive)", id)
		}
		if id > MaxAppID {
			return false, fmt.Sprintf("DLC id too large: %d", id)
		}
	}
	return true, ""
}

// DLLFile checks that path exists, is a regular file, and is readable.
func DLLFile(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Sprintf("DLL file does not exist: %s", path)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Sprintf("path is not a file: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Sprintf("cannot read DLL file: %v", err)
	}
	defer f.Close()
	if _, err := f.Read(make([]byte, 1)); err != nil {
		return false, fmt.Sprintf("cannot read DLL file: %v", err)
	}
	return true, ""
}

// FileInUse probes whether path is held open by another process by
// attempting an exclusive read-write open. A missing file is not in use.
// Probe failures other than a sharing violation report not-in-use; the
// check is best-effort and only meaningful on Windows filesystems.
func FileInUse(path string) (bool, string) {
	if _, err := os.Stat(path); err != nil {
		return false, ""
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsPermission(err) {
			return true, fmt.Sprintf("file is locked (may be in use): %s", path)
		}
		return false, ""
	}
	f.Close()
	return false, ""
}

// Gate runs every pre-flight check in order: directory, app id, DLC ids,
// write permission, disk space. The first failure aborts with its reason
// and zero side effects beyond the write probe.
func Gate(dir string, appID int, dlcIDs []int, minBytes uint64) (bool, string) {
	if ok, reason := Directory(dir); !ok {
		return false, reason
	}
	if ok, reason := AppID(appID); !ok {
		return false, reason
	}
	if ok, reason := DLCIDs(dlcIDs); !ok {
		return false, reason
	}
	if ok, reason := WritePermission(dir); !ok {
		return false, reason
	}
	if ok, reason := DiskSpace(dir, minBytes); !ok {
		return false, reason
	}
	return true, ""
}
