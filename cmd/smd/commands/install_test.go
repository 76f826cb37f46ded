package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Midrags/SMD/internal/config"
	"github.com/Midrags/SMD/internal/logging"
	"github.com/Midrags/SMD/internal/settings"
	"github.com/Midrags/SMD/internal/unlocker"
)

func testManager(t *testing.T) *unlocker.Manager {
	t.Helper()
	store := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.toml"))
	return unlocker.NewManager(logging.ForTest(t), store)
}

func writeGameFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveUnlockerType(t *testing.T) {
	log = logging.ForTest(t)
	cfg = &config.Config{}
	mgr := testManager(t)

	t.Run("explicit flag", func(t *testing.T) {
		typ, err := resolveUnlockerType(mgr, t.TempDir(), "creamapi", false)
		if err != nil {
			t.Fatal(err)
		}
		if typ != unlocker.TypeCreamAPI {
			t.Errorf("type = %s", typ)
		}
	})

	t.Run("invalid flag", func(t *testing.T) {
		if _, err := resolveUnlockerType(mgr, t.TempDir(), "bogus", false); err == nil {
			t.Fatal("expected error for unknown technique")
		}
	})

	t.Run("auto steam defaults to smokeapi", func(t *testing.T) {
		dir := t.TempDir()
		writeGameFile(t, dir, "steam_api64.dll")
		typ, err := resolveUnlockerType(mgr, dir, "auto", false)
		if err != nil {
			t.Fatal(err)
		}
		if typ != unlocker.TypeSmokeAPI {
			t.Errorf("type = %s", typ)
		}
	})

	t.Run("auto steam with proxy flag", func(t *testing.T) {
		dir := t.TempDir()
		writeGameFile(t, dir, "steam_api64.dll")
		typ, err := resolveUnlockerType(mgr, dir, "auto", true)
		if err != nil {
			t.Fatal(err)
		}
		if typ != unlocker.TypeKoaloader {
			t.Errorf("type = %s", typ)
		}
	})

	t.Run("auto steam with preferred config", func(t *testing.T) {
		cfg = &config.Config{PreferredUnlocker: "creamapi"}
		defer func() { cfg = &config.Config{} }()

		dir := t.TempDir()
		writeGameFile(t, dir, "steam_api.dll")
		typ, err := resolveUnlockerType(mgr, dir, "auto", false)
		if err != nil {
			t.Fatal(err)
		}
		if typ != unlocker.TypeCreamAPI {
			t.Errorf("type = %s", typ)
		}
	})

	t.Run("auto ubisoft r1", func(t *testing.T) {
		dir := t.TempDir()
		writeGameFile(t, dir, "uplay_r1_loader.dll")
		typ, err := resolveUnlockerType(mgr, dir, "auto", false)
		if err != nil {
			t.Fatal(err)
		}
		if typ != unlocker.TypeUplayR1 {
			t.Errorf("type = %s", typ)
		}
	})

	t.Run("auto ubisoft r2", func(t *testing.T) {
		dir := t.TempDir()
		writeGameFile(t, dir, "upc_r2_loader.dll")
		typ, err := resolveUnlockerType(mgr, dir, "auto", false)
		if err != nil {
			t.Fatal(err)
		}
		if typ != unlocker.TypeUplayR2 {
			t.Errorf("type = %s", typ)
		}
	})
}
