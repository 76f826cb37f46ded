package unlocker

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/Midrags/SMD/internal/logging"
)

// koaPayloadDir lays out loader stubs in the <name>-<arch>/<name>.dll
// release layout plus the SmokeAPI pair to chain-load.
func koaPayloadDir(t *testing.T, carriers ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, carrier := range carriers {
		stem := carrier[:len(carrier)-len(filepath.Ext(carrier))]
		writeTestFile(t, filepath.Join(dir, stem+"-64", carrier), "stub "+carrier)
		writeTestFile(t, filepath.Join(dir, stem+"-32", carrier), "stub32 "+carrier)
	}
	writeTestFile(t, filepath.Join(dir, smokeDLL32), "smoke payload 32")
	writeTestFile(t, filepath.Join(dir, smokeDLL64), "smoke payload 64")
	return dir
}

func TestSelectCarrier(t *testing.T) {
	k := NewKoaloader(logging.ForTest(t))

	t.Run("existing carrier in root wins", func(t *testing.T) {
		gameDir := t.TempDir()
		writeTestFile(t, filepath.Join(gameDir, "winmm.dll"), "game's own")
		if got := k.SelectCarrier(gameDir, koaPayloadDir(t, "d3d9.dll"), "64"); got != "winmm.dll" {
			t.Errorf("carrier = %q, want winmm.dll", got)
		}
	})

	t.Run("preference order among available payloads", func(t *testing.T) {
		payloads := koaPayloadDir(t, "dxgi.dll", "dinput8.dll")
		if got := k.SelectCarrier(t.TempDir(), payloads, "64"); got != "dinput8.dll" {
			t.Errorf("carrier = %q, want dinput8.dll", got)
		}
	})

	t.Run("first available outside preference", func(t *testing.T) {
		payloads := koaPayloadDir(t, "winhttp.dll")
		if got := k.SelectCarrier(t.TempDir(), payloads, "64"); got != "winhttp.dll" {
			t.Errorf("carrier = %q, want winhttp.dll", got)
		}
	})

	t.Run("default with no payloads", func(t *testing.T) {
		if got := k.SelectCarrier(t.TempDir(), t.TempDir(), "64"); got != "d3d9.dll" {
			t.Errorf("carrier = %q, want d3d9.dll", got)
		}
	})
}

func TestKoaloader_InstallRoundTrip(t *testing.T) {
	k := NewKoaloader(logging.ForTest(t))
	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api64.dll"), "original 64")

	if !k.Install(gameDir, nil, 123, koaPayloadDir(t, "d3d9.dll")) {
		t.Fatal("install failed")
	}

	if got := readTestFile(t, filepath.Join(gameDir, "d3d9.dll")); got != "stub d3d9.dll" {
		t.Errorf("carrier = %q, want the 64-bit stub", got)
	}
	if got := readTestFile(t, filepath.Join(gameDir, smokeDLL64)); got != "smoke payload 64" {
		t.Errorf("staged module = %q", got)
	}
	// The target DLL is never touched in proxy mode.
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api64.dll")); got != "original 64" {
		t.Errorf("steam_api64.dll modified by proxy install: %q", got)
	}

	raw := readTestFile(t, filepath.Join(gameDir, koaloaderConfigFilename))
	var cfg koaloaderConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("config does not parse: %v", err)
	}
	if !cfg.Enabled || !cfg.AutoLoad {
		t.Errorf("config flags = %+v", cfg)
	}
	if len(cfg.Modules) != 2 || cfg.Modules[0] != smokeDLL32 || cfg.Modules[1] != smokeDLL64 {
		t.Errorf("modules = %v", cfg.Modules)
	}

	if !k.IsInstalled(gameDir) {
		t.Error("IsInstalled false after install")
	}

	if !k.Uninstall(gameDir) {
		t.Fatal("uninstall failed")
	}
	// The game had no d3d9.dll of its own, so the stub is removed outright.
	for _, f := range []string{"d3d9.dll", koaloaderConfigFilename, smokeDLL32, smokeDLL64} {
		if exists(filepath.Join(gameDir, f)) {
			t.Errorf("%s survived uninstall", f)
		}
	}
	if k.IsInstalled(gameDir) {
		t.Error("IsInstalled true after uninstall")
	}
}

func TestKoaloader_CarrierBackupRestore(t *testing.T) {
	k := NewKoaloader(logging.ForTest(t))
	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api64.dll"), "original 64")
	writeTestFile(t, filepath.Join(gameDir, "dinput8.dll"), "game's own dinput8")

	if !k.Install(gameDir, nil, 123, koaPayloadDir(t, "dinput8.dll")) {
		t.Fatal("install failed")
	}

	if got := readTestFile(t, filepath.Join(gameDir, "dinput8_o.dll")); got != "game's own dinput8" {
		t.Errorf("carrier backup = %q", got)
	}
	if got := readTestFile(t, filepath.Join(gameDir, "dinput8.dll")); got != "stub dinput8.dll" {
		t.Errorf("carrier = %q", got)
	}

	if !k.Uninstall(gameDir) {
		t.Fatal("uninstall failed")
	}
	if got := readTestFile(t, filepath.Join(gameDir, "dinput8.dll")); got != "game's own dinput8" {
		t.Errorf("carrier after restore = %q", got)
	}
	if exists(filepath.Join(gameDir, "dinput8_o.dll")) {
		t.Error("carrier backup survived uninstall")
	}
}

// A proxy install over an existing direct-mode install must first undo
// the direct install so both never hold a backup for the same filename.
func TestKoaloader_InstallUndoesDirectMode(t *testing.T) {
	log := logging.ForTest(t)
	s := NewSmokeAPI(log)
	k := NewKoaloader(log)

	gameDir := t.TempDir()
	writeTestFile(t, filepath.Join(gameDir, "steam_api64.dll"), "original 64")

	if !s.Install(gameDir, nil, 123, smokePayloadDir(t)) {
		t.Fatal("direct install failed")
	}
	if !k.Install(gameDir, nil, 123, koaPayloadDir(t, "d3d9.dll")) {
		t.Fatal("proxy install failed")
	}

	if exists(filepath.Join(gameDir, "steam_api64_o.dll")) {
		t.Error("direct-mode backup survived the proxy install")
	}
	if got := readTestFile(t, filepath.Join(gameDir, "steam_api64.dll")); got != "original 64" {
		t.Errorf("steam_api64.dll = %q, want the restored original", got)
	}
	if exists(filepath.Join(gameDir, smokeConfigFilename)) {
		t.Error("direct-mode config survived the proxy install")
	}
}

func TestKoaloader_InstallNoArchitecture(t *testing.T) {
	k := NewKoaloader(logging.ForTest(t))
	if k.Install(t.TempDir(), nil, 123, koaPayloadDir(t, "d3d9.dll")) {
		t.Fatal("install passed with no steam_api DLL to infer architecture from")
	}
}

func TestKoaloader_UninstallLeavesForeignCarrier(t *testing.T) {
	k := NewKoaloader(logging.ForTest(t))
	gameDir := t.TempDir()
	// A bare carrier with no loader config and no backup belongs to the
	// game and must survive.
	writeTestFile(t, filepath.Join(gameDir, "d3d11.dll"), "game's own")

	if !k.Uninstall(gameDir) {
		t.Fatal("uninstall failed")
	}
	if got := readTestFile(t, filepath.Join(gameDir, "d3d11.dll")); got != "game's own" {
		t.Errorf("foreign carrier touched: %q", got)
	}
}

func TestKoaloader_IsInstalled(t *testing.T) {
	gameDir := t.TempDir()
	k := NewKoaloader(logging.ForTest(t))

	if k.IsInstalled(gameDir) {
		t.Error("empty dir reports installed")
	}
	writeTestFile(t, filepath.Join(gameDir, "winmm_o.dll"), "backup")
	if !k.IsInstalled(gameDir) {
		t.Error("carrier backup not recognized")
	}
}
