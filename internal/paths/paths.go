// Package paths resolves application directories for smd using the XDG
// base directory specification.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under XDG config and cache homes.
const AppName = "smd"

// DefaultDirPerm is the permission for newly created app directories.
const DefaultDirPerm = 0o700

// ConfigDir returns the smd configuration directory
// (e.g. ~/.config/smd). The SMD_CONFIG_DIR environment variable
// overrides it, which tests rely on.
func ConfigDir() string {
	if dir := os.Getenv("SMD_CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

// CacheDir returns the smd cache directory (e.g. ~/.cache/smd).
func CacheDir() string {
	if dir := os.Getenv("SMD_CACHE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.CacheHome, AppName)
}

// SettingsPath returns the path of the per-game settings store.
func SettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.toml")
}

// PayloadCacheDir returns the directory where the external downloader
// collaborator places pre-fetched unlocker binaries. This engine only
// ever reads from it.
func PayloadCacheDir() string {
	return filepath.Join(CacheDir(), "payloads")
}

// EnsureDir creates the directory and any necessary parents.
// If perm is 0, DefaultDirPerm is used. Idempotent.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}
