package unlocker

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/validate"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// checkReplace verifies a payload/target pair before any bytes move: the
// payload must be a readable DLL and the target must not be held open by
// a running process.
func checkReplace(payload, target string) error {
	if ok, reason := validate.DLLFile(payload); !ok {
		return errors.Mark(errors.New(reason), errors.ErrPayloadMissing)
	}
	if inUse, reason := validate.FileInUse(target); inUse {
		return errors.Mark(errors.New(reason), errors.ErrFileInUse)
	}
	return nil
}

// errNoOriginal marks a location where neither the original target nor a
// backup exists, so there is nothing to patch.
func errNoOriginal(path string) error {
	return errors.Wrapf(errors.ErrNoTargetFound, "original binary missing at %s", path)
}

// relLabel renders a location directory relative to the game root for
// logging; the root itself reads "(root)".
func relLabel(gameDir, dir string) string {
	rel, err := filepath.Rel(gameDir, dir)
	if err != nil {
		return dir
	}
	if rel == "." {
		return "(root)"
	}
	return rel
}

// findAllNamed returns every file named name under root, in walk order.
func findAllNamed(root, name string) []string {
	var found []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = append(found, path)
		}
		return nil
	})
	return found
}

// restoreBackup restores a backup file onto its target: the current
// target is removed, the backup's bytes are copied back, and the backup
// is deleted only after the copy succeeded so a failed restore never
// loses the original.
func restoreBackup(backupPath, targetPath string) error {
	if !fileutil.FileExists(backupPath) {
		return errors.Mark(
			errors.Newf("backup vanished at %s", backupPath), errors.ErrMissingBackup)
	}
	if err := fileutil.RemoveIfExists(targetPath); err != nil {
		return err
	}
	if err := fileutil.CopyFile(backupPath, targetPath); err != nil {
		return err
	}
	return os.Remove(backupPath)
}
