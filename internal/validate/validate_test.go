package validate

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		ok   bool
	}{
		{"existing directory", dir, true},
		{"missing path", filepath.Join(dir, "nope"), false},
		{"regular file", file, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Directory(tt.path)
			if ok != tt.ok {
				t.Errorf("Directory(%q) = %v (%s), want %v", tt.path, ok, reason, tt.ok)
			}
			if !ok && reason == "" {
				t.Error("failing check returned empty reason")
			}
		})
	}
}

func TestAppID(t *testing.T) {
	tests := []struct {
		id int
		ok bool
	}{
		{1, true},
		{123, true},
		{MaxAppID, true},
		{0, false},
		{-5, false},
		{MaxAppID + 1, false},
	}
	for _, tt := range tests {
		if ok, _ := AppID(tt.id); ok != tt.ok {
			t.Errorf("AppID(%d) = %v, want %v", tt.id, ok, tt.ok)
		}
	}
}

func TestDLCIDs(t *testing.T) {
	tests := []struct {
		name string
		ids  []int
		ok   bool
	}{
		{"empty list", nil, true},
		{"valid ids", []int{10, 11}, true},
		{"zero id", []int{10, 0}, false},
		{"negative id", []int{-5}, false},
		{"too large", []int{MaxAppID + 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok, _ := DLCIDs(tt.ids); ok != tt.ok {
				t.Errorf("DLCIDs(%v) = %v, want %v", tt.ids, ok, tt.ok)
			}
		})
	}
}

func TestWritePermission(t *testing.T) {
	dir := t.TempDir()
	if ok, reason := WritePermission(dir); !ok {
		t.Errorf("writable dir failed: %s", reason)
	}

	// The probe file must not survive the check.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}

	if runtime.GOOS != "windows" && os.Getuid() != 0 {
		ro := t.TempDir()
		if err := os.Chmod(ro, 0o500); err != nil {
			t.Fatal(err)
		}
		if ok, _ := WritePermission(ro); ok {
			t.Error("read-only dir passed the write check")
		}
	}
}

func TestDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if ok, _ := DiskSpace(dir, 1); !ok {
		t.Error("1 byte requirement failed on a real filesystem")
	}
	if ok, reason := DiskSpace(dir, 1<<62); ok {
		t.Error("absurd space requirement passed")
	} else if !strings.Contains(reason, "insufficient disk space") {
		t.Errorf("unexpected reason: %s", reason)
	}
}

func TestDLLFile(t *testing.T) {
	dir := t.TempDir()
	dll := filepath.Join(dir, "steam_api.dll")
	if err := os.WriteFile(dll, []byte("MZ"), 0o644); err != nil {
		t.Fatal(err)
	}

	if ok, reason := DLLFile(dll); !ok {
		t.Errorf("readable file failed: %s", reason)
	}
	if ok, _ := DLLFile(filepath.Join(dir, "missing.dll")); ok {
		t.Error("missing file passed")
	}
	if ok, _ := DLLFile(dir); ok {
		t.Error("directory passed as DLL file")
	}
}

func TestFileInUse_MissingFile(t *testing.T) {
	if inUse, _ := FileInUse(filepath.Join(t.TempDir(), "nope.dll")); inUse {
		t.Error("missing file reported in use")
	}
}

// Gate must short-circuit: an invalid directory fails before the id
// checks ever see their invalid inputs, and leaves the filesystem
// untouched.
func TestGate_ShortCircuit(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	ok, reason := Gate(missing, -1, []int{0}, DefaultMinFreeBytes)
	if ok {
		t.Fatal("gate passed for nonexistent directory")
	}
	if !strings.Contains(reason, "does not exist") {
		t.Errorf("expected the directory failure to win, got: %s", reason)
	}
}

func TestGate_Order(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		appID  int
		dlcIDs []int
		want   string
	}{
		{"bad app id before bad dlc", 0, []int{0}, "invalid app id"},
		{"bad dlc id", 123, []int{-1}, "invalid DLC id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Gate(dir, tt.appID, tt.dlcIDs, DefaultMinFreeBytes)
			if ok {
				t.Fatal("gate unexpectedly passed")
			}
			if !strings.Contains(reason, tt.want) {
				t.Errorf("reason %q does not contain %q", reason, tt.want)
			}
		})
	}
}

func TestGate_Pass(t *testing.T) {
	if ok, reason := Gate(t.TempDir(), 123, []int{10, 11}, 1); !ok {
		t.Errorf("gate failed on valid inputs: %s", reason)
	}
}
