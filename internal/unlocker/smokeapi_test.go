package unlocker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Midrags/SMD/internal/logging"
)

func smokePayloadDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, smokeDLL32), "smoke payload 32")
	writeTestFile(t, filepath.Join(dir, smokeDLL64), "smoke payload 64")
	return dir
}

func TestSmokeAPI_InstallRoundTrip(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api64.dll"), "original 64")

	if !s.Install(gameDir, []int{10, 11}, 123, smokePayloadDir(t)) {
		t.Fatal("install failed")
	}

	backup := filepath.Join(gameDir, "steam_api64_o.dll")
	if got := readTestFile(t, backup); got != "original 64" {
		t.Errorf("backup bytes = %q, want the original", got)
	}
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api64.dll")); got != "smoke payload 64" {
		t.Errorf("target bytes = %q, want the payload", got)
	}

	raw := readTestFile(t, filepath.Join(gameDir, smokeConfigFilename))
	var cfg map[string]any
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}
	if cfg["$version"] != float64(4) {
		t.Errorf("$version = %v, want 4", cfg["$version"])
	}
	extra, ok := cfg["extra_dlcs"].(map[string]any)
	if !ok {
		t.Fatalf("extra_dlcs has wrong shape: %T", cfg["extra_dlcs"])
	}
	for _, id := range []string{"10", "11"} {
		if _, present := extra[id]; !present {
			t.Errorf("extra_dlcs missing key %q", id)
		}
	}

	if !s.IsInstalled(gameDir) {
		t.Error("IsInstalled false after install")
	}

	if !s.Uninstall(gameDir) {
		t.Fatal("uninstall failed")
	}
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api64.dll")); got != "original 64" {
		t.Errorf("target after uninstall = %q, want the original restored", got)
	}
	if exists(backup) {
		t.Error("backup survived uninstall")
	}
	if exists(filepath.Join(gameDir, smokeConfigFilename)) {
		t.Error("config survived uninstall")
	}
	if s.IsInstalled(gameDir) {
		t.Error("IsInstalled true after uninstall")
	}
}

func TestSmokeAPI_MultiLocation(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	gameDir := t.TempDir()
	locations := []string{
		"steam_api64.dll",
		"bin/steam_api.dll",
		"engine/plugins/steam_api64.dll",
	}
	for _, f := range locations {
		writeTestFile(t, filepath.Join(gameDir, filepath.FromSlash(f)), "original "+f)
	}

	if !s.Install(gameDir, nil, 123, smokePayloadDir(t)) {
		t.Fatal("install failed")
	}

	// Every location is patched and backed up; none is skipped.
	for _, f := range locations {
		target := filepath.Join(gameDir, filepath.FromSlash(f))
		backup := filepath.Join(filepath.Dir(target), backupOf(filepath.Base(target)))
		if got := readTestFile(t, backup); got != "original "+f {
			t.Errorf("backup for %s = %q", f, got)
		}
		if got := readTestFile(t, target); got == "original "+f {
			t.Errorf("location %s was not patched", f)
		}
		if !exists(filepath.Join(filepath.Dir(target), smokeConfigFilename)) {
			t.Errorf("config missing at %s", filepath.Dir(f))
		}
	}

	if !s.Uninstall(gameDir) {
		t.Fatal("uninstall failed")
	}
	for _, f := range locations {
		target := filepath.Join(gameDir, filepath.FromSlash(f))
		if got := readTestFile(t, target); got != "original "+f {
			t.Errorf("location %s not restored: %q", f, got)
		}
	}
}

func backupOf(dllName string) string {
	ext := filepath.Ext(dllName)
	return dllName[:len(dllName)-len(ext)] + "_o" + ext
}

// Reinstalling must not overwrite the backup with patched bytes; the
// original survives any number of installs.
func TestSmokeAPI_InstallIdempotent(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api.dll"), "the one true original")
	payloads := smokePayloadDir(t)

	for i := 0; i < 3; i++ {
		if !s.Install(gameDir, []int{10}, 123, payloads) {
			t.Fatal("install failed")
		}
	}

	if got := readTestFile(t, filepath.Join(gameDir, "steam_api_o.dll")); got != "the one true original" {
		t.Errorf("backup corrupted by reinstall: %q", got)
	}

	if !s.Uninstall(gameDir) {
		t.Fatal("uninstall failed")
	}
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api.dll")); got != "the one true original" {
		t.Errorf("restore after repeated installs = %q", got)
	}
}

func TestSmokeAPI_ValidationBlocksBeforeAnyChange(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api.dll"), "original")

	tests := []struct {
		name   string
		appID  int
		dlcIDs []int
	}{
		{"zero app id", 0, nil},
		{"negative app id", -5, nil},
		{"invalid dlc id", 123, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s.Install(gameDir, tt.dlcIDs, tt.appID, smokePayloadDir(t)) {
				t.Fatal("install passed invalid input")
			}
			if exists(filepath.Join(gameDir, "steam_api_o.dll")) {
				t.Error("backup created despite failed validation")
			}
			if exists(filepath.Join(gameDir, smokeConfigFilename)) {
				t.Error("config written despite failed validation")
			}
		})
	}
}

func TestSmokeAPI_InstallMissingDirectory(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	if s.Install(filepath.Join(t.TempDir(), "nope"), nil, 123, smokePayloadDir(t)) {
		t.Fatal("install passed for nonexistent game directory")
	}
}

func TestSmokeAPI_InstallNoTargets(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	if s.Install(t.TempDir(), nil, 123, smokePayloadDir(t)) {
		t.Fatal("install passed with no steam_api DLL anywhere")
	}
}

func TestSmokeAPI_UninstallNoBackupsIsNoOp(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api.dll"), "pristine")
	// Orphaned config with no backup anywhere.
	writeTestFile(t, filepath.Join(gameDir, smokeConfigFilename), "{}")

	if !s.Uninstall(gameDir) {
		t.Fatal("uninstall of a clean tree must succeed")
	}
	if exists(filepath.Join(gameDir, smokeConfigFilename)) {
		t.Error("orphaned config not cleaned up")
	}
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api.dll")); got != "pristine" {
		t.Errorf("clean tree modified: %q", got)
	}
}

// Installing CreamAPI over SmokeAPI flips ownership: exactly one
// technique reports installed afterwards and the original bytes still
// restore.
func TestSmokeAPI_SwitchToCreamAPI(t *testing.T) {
	log := logging.ForTest(t)
	s := NewSmokeAPI(log)
	c := NewCreamAPI(log)

	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api64.dll"), "original 64")

	creamPayloads := t.TempDir()
	writeTestFile(t, filepath.Join(creamPayloads, "steam_api64.dll"), "cream payload 64")

	if !s.Install(gameDir, []int{10}, 123, smokePayloadDir(t)) {
		t.Fatal("smokeapi install failed")
	}
	if !c.Install(gameDir, []int{10}, 123, creamPayloads) {
		t.Fatal("creamapi install failed")
	}

	if s.IsInstalled(gameDir) {
		t.Error("SmokeAPI still reports installed after switch")
	}
	if !c.IsInstalled(gameDir) {
		t.Error("CreamAPI does not report installed after switch")
	}
	if exists(filepath.Join(gameDir, smokeConfigFilename)) {
		t.Error("SmokeAPI config survived the switch")
	}

	// The backup still holds the true original, not SmokeAPI's payload.
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api64_o.dll")); got != "original 64" {
		t.Errorf("backup after switch = %q", got)
	}

	if !c.Uninstall(gameDir) {
		t.Fatal("creamapi uninstall failed")
	}
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api64.dll")); got != "original 64" {
		t.Errorf("restore after switch = %q", got)
	}
}

func TestSmokeAPI_DetectProxyMode(t *testing.T) {
	s := NewSmokeAPI(logging.ForTest(t))
	gameDir := t.TempDir()
	if got := s.DetectProxyMode(gameDir); len(got) != 0 {
		t.Errorf("clean tree reported proxy artifacts: %v", got)
	}

	writeTestFile(t, filepath.Join(gameDir, koaloaderConfigFilename),
		`{"modules": ["smoke_api64.dll"]}`)
	writeTestFile(t, filepath.Join(gameDir, "d3d9.dll"), "stub")

	got := s.DetectProxyMode(gameDir)
	if len(got) != 2 {
		t.Errorf("got %d proxy artifacts, want 2: %v", len(got), got)
	}
}

func TestKoaloaderConfigReferencesModule(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		needle  string
		want    bool
	}{
		{"string module", `{"modules": ["smoke_api64.dll"]}`, "smoke_api", true},
		{"object module", `{"modules": [{"path": "SmokeAPI/smoke_api32.dll"}]}`, "smoke_api", true},
		{"no match", `{"modules": ["other.dll"]}`, "smoke_api", false},
		{"unparseable", `not json`, "smoke_api", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if got := koaloaderConfigReferencesModule(path, tt.needle); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
