package fileutil

import (
	"io"
	"io/fs"
	"os"

	"github.com/Midrags/SMD/internal/errors"
)

// CopyFile copies a single file from src to dst, preserving the source
// file's mode. dst is truncated if it already exists.
//
// Failures to open dst for writing because another process holds it open
// (Windows sharing violations, EBUSY on some filesystems) surface as
// errors marked with errors.ErrFileInUse so callers can distinguish a
// locked target from ordinary I/O failure.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return wrapOpenErr(err, "opening source file")
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return errors.Wrap(err, "stating source file")
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return wrapOpenErr(err, "creating destination file")
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return errors.Wrap(err, "copying content")
	}

	if err := dstFile.Sync(); err != nil {
		return errors.Wrap(err, "syncing destination file")
	}

	return nil
}

// wrapOpenErr classifies open/create failures into the error taxonomy.
func wrapOpenErr(err error, msg string) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return errors.Mark(errors.Wrap(err, msg), errors.ErrPermission)
	case isBusy(err):
		return errors.Mark(errors.Wrap(err, msg), errors.ErrFileInUse)
	default:
		return errors.Wrap(err, msg)
	}
}

// FileExists returns true if path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists returns true if path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// RemoveIfExists deletes path if it exists. Missing files are not an error.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrapOpenErr(err, "removing file")
	}
	return nil
}
