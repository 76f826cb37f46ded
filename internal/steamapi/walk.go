package steamapi

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// walk visits every regular file under root in lexical order, calling fn
// with the full path and directory entry. fn returns false to stop the
// walk early. Unreadable subtrees are skipped rather than treated as
// fatal: a partially restricted game tree should not break discovery of
// the readable portion.
func walk(root string, fn func(path string, d fs.DirEntry) bool) {
	stop := errStop{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !fn(path, d) {
			return stop
		}
		return nil
	})
	_ = err
}

type errStop struct{}

func (errStop) Error() string { return "walk stopped" }

// depth returns the number of path elements between root and dir;
// root itself is depth 0. Paths outside root sort last.
func depth(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return 999
	}
	if rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// fileExists reports whether path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
