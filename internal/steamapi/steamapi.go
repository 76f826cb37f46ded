// Package steamapi locates Steam entitlement-check binaries inside a game
// installation tree. It serves the direct-replacement unlockers (SmokeAPI,
// CreamAPI) and the Koaloader architecture probe.
//
// All results are derived fresh from disk on every call; nothing is
// cached across operations.
package steamapi

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Target DLL filenames per architecture.
const (
	DLL32 = "steam_api.dll"
	DLL64 = "steam_api64.dll"
)

// BackupSuffix is inserted before the extension when an original is
// preserved (steam_api64.dll -> steam_api64_o.dll). The suffix is part of
// the external compatibility contract shared with other tooling and must
// not change.
const BackupSuffix = "_o"

// Location is one physical site requiring a patch: a directory holding a
// target DLL of a particular architecture.
type Location struct {
	Dir     string // directory containing the DLL
	DLLName string // DLL32 or DLL64
	Arch    string // "32" or "64"
}

// BackupName returns the backup filename for a target DLL
// (steam_api.dll -> steam_api_o.dll).
func BackupName(dllName string) string {
	ext := filepath.Ext(dllName)
	return strings.TrimSuffix(dllName, ext) + BackupSuffix + ext
}

// IsBackup reports whether name carries the backup suffix before its
// extension.
func IsBackup(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.HasSuffix(stem, BackupSuffix)
}

// FindDLL locates the first occurrence of dllName under gameDir, root
// first and then recursively. When excludeBackup is set, files whose stem
// ends with the backup suffix are skipped; pass false when explicitly
// searching for backup files.
func FindDLL(gameDir, dllName string, excludeBackup bool) string {
	rootPath := filepath.Join(gameDir, dllName)
	if fileExists(rootPath) && (!excludeBackup || !IsBackup(dllName)) {
		return rootPath
	}

	var found string
	walk(gameDir, func(path string, d fs.DirEntry) bool {
		if d.Name() != dllName {
			return true
		}
		if excludeBackup && IsBackup(d.Name()) {
			return true
		}
		found = path
		return false
	})
	return found
}

// DetectArchitecture reports the game's architecture from DLL presence:
// "64", "32", or "" when nothing is found. It checks root originals
// first, then root backups (the original may currently be replaced), then
// searches the tree, preferring 64-bit at every step.
func DetectArchitecture(gameDir string) string {
	if fileExists(filepath.Join(gameDir, DLL64)) {
		return "64"
	}
	if fileExists(filepath.Join(gameDir, DLL32)) {
		return "32"
	}
	if fileExists(filepath.Join(gameDir, BackupName(DLL64))) {
		return "64"
	}
	if fileExists(filepath.Join(gameDir, BackupName(DLL32))) {
		return "32"
	}
	if FindDLL(gameDir, DLL64, true) != "" {
		return "64"
	}
	if FindDLL(gameDir, DLL32, true) != "" {
		return "32"
	}
	return ""
}

// FindAllLocations enumerates every directory under gameDir holding a
// target DLL, excluding backup files. A directory holding both
// architectures contributes two entries. Results are sorted by depth
// ascending then path lexicographic so installs and logs are
// reproducible.
func FindAllLocations(gameDir string) []Location {
	type key struct {
		dir  string
		name string
	}
	seen := make(map[key]struct{})
	var locations []Location

	for _, dllName := range []string{DLL32, DLL64} {
		arch := "32"
		if dllName == DLL64 {
			arch = "64"
		}
		walk(gameDir, func(path string, d fs.DirEntry) bool {
			if d.Name() != dllName || IsBackup(d.Name()) {
				return true
			}
			dir := filepath.Dir(path)
			k := key{dir, dllName}
			if _, dup := seen[k]; dup {
				return true
			}
			seen[k] = struct{}{}
			locations = append(locations, Location{Dir: dir, DLLName: dllName, Arch: arch})
			return true
		})
	}

	sort.Slice(locations, func(i, j int) bool {
		di, dj := depth(gameDir, locations[i].Dir), depth(gameDir, locations[j].Dir)
		if di != dj {
			return di < dj
		}
		if locations[i].Dir != locations[j].Dir {
			return locations[i].Dir < locations[j].Dir
		}
		return locations[i].DLLName < locations[j].DLLName
	})
	return locations
}

// FindBackupLocations enumerates locations by their backup artifacts
// instead of the original filenames. Uninstall discovery must use this:
// the original may currently be absent or replaced, so backups are the
// only reliable marker.
func FindBackupLocations(gameDir string) []Location {
	var locations []Location
	walk(gameDir, func(path string, d fs.DirEntry) bool {
		name := d.Name()
		if !IsBackup(name) || filepath.Ext(name) != ".dll" {
			return true
		}
		// steam_api64 must be matched before steam_api: shared prefix.
		var dllName, arch string
		switch {
		case strings.HasPrefix(name, "steam_api64"):
			dllName, arch = DLL64, "64"
		case strings.HasPrefix(name, "steam_api"):
			dllName, arch = DLL32, "32"
		default:
			return true
		}
		locations = append(locations, Location{Dir: filepath.Dir(path), DLLName: dllName, Arch: arch})
		return true
	})

	sort.Slice(locations, func(i, j int) bool {
		di, dj := depth(gameDir, locations[i].Dir), depth(gameDir, locations[j].Dir)
		if di != dj {
			return di < dj
		}
		if locations[i].Dir != locations[j].Dir {
			return locations[i].Dir < locations[j].Dir
		}
		return locations[i].DLLName < locations[j].DLLName
	})
	return locations
}
