package unlocker

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Midrags/SMD/internal/steamapi"
	"github.com/Midrags/SMD/internal/validate"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// koaloaderConfigFilename is the loader's JSON artifact, an external
// contract.
const koaloaderConfigFilename = "Koaloader.config.json"

// koaloaderConfigNames are every config filename the loader family has
// shipped under; all of them count as proxy-mode indicators.
var koaloaderConfigNames = []string{
	koaloaderConfigFilename,
	"koaloader_config.json",
	"koaloader.json",
}

// koaloaderCarriers are the system DLL names the loader can impersonate
// (Koaloader v3.0.4+ set).
var koaloaderCarriers = []string{
	"winmm.dll", "winhttp.dll", "version.dll",
	"audioses.dll", "d3d9.dll", "d3d10.dll", "d3d11.dll",
	"dinput8.dll", "dwmapi.dll", "dxgi.dll",
	"glu32.dll", "hid.dll", "iphlpapi.dll",
	"msasn1.dll", "msimg32.dll", "mswsock.dll",
	"opengl32.dll", "profapi.dll", "propsys.dll",
	"textshaping.dll", "wldp.dll", "xinput9_1_0.dll",
}

// carrierPreference orders the carriers that ship loader payloads; the
// first available wins when the game has no carrier of its own yet.
var carrierPreference = []string{"d3d9.dll", "dinput8.dll", "d3d11.dll", "dxgi.dll"}

// koaloaderConfig is the Koaloader.config.json schema.
type koaloaderConfig struct {
	Logging  bool     `json:"logging"`
	Enabled  bool     `json:"enabled"`
	AutoLoad bool     `json:"auto_load"`
	Targets  []string `json:"targets"`
	Modules  []string `json:"modules"`
}

// Koaloader installs a generic loader in place of a rarely-checked system
// DLL (the carrier) which then chain-loads SmokeAPI. One carrier per
// game; the SmokeAPI binary pair is staged into the game root so the
// loader can find it.
type Koaloader struct {
	log *slog.Logger
}

// NewKoaloader creates the Koaloader unlocker.
func NewKoaloader(log *slog.Logger) *Koaloader {
	return &Koaloader{log: log}
}

func (k *Koaloader) Type() Type            { return TypeKoaloader }
func (k *Koaloader) Platforms() []Platform { return []Platform{PlatformSteam} }
func (k *Koaloader) DisplayName() string   { return "Koaloader" }

// IsInstalled reports whether the loader config or any carrier backup is
// present at the game root.
func (k *Koaloader) IsInstalled(gameDir string) bool {
	if fileutil.FileExists(filepath.Join(gameDir, koaloaderConfigFilename)) {
		return true
	}
	for _, carrier := range koaloaderCarriers {
		if fileutil.FileExists(filepath.Join(gameDir, carrierBackupName(carrier))) {
			return true
		}
	}
	return false
}

// carrierBackupName maps winmm.dll -> winmm_o.dll.
func carrierBackupName(carrier string) string {
	return steamapi.BackupName(carrier)
}

// SelectCarrier picks the carrier filename for a game: a carrier already
// present in the root wins, then the fixed preference order among
// carriers whose loader payload exists for the architecture, then the
// first carrier with a payload, then the default.
func (k *Koaloader) SelectCarrier(gameDir, payloadDir, arch string) string {
	for _, carrier := range koaloaderCarriers {
		if fileutil.FileExists(filepath.Join(gameDir, carrier)) {
			k.log.Info("reusing carrier already present in game root", "carrier", carrier)
			return carrier
		}
	}

	if payloadDir != "" && arch != "" {
		var available []string
		for _, carrier := range koaloaderCarriers {
			if fileutil.FileExists(carrierPayloadPath(payloadDir, carrier, arch)) {
				available = append(available, carrier)
			}
		}
		for _, preferred := range carrierPreference {
			for _, carrier := range available {
				if carrier == preferred {
					k.log.Info("selected preferred carrier", "carrier", carrier)
					return carrier
				}
			}
		}
		if len(available) > 0 {
			k.log.Info("selected first available carrier", "carrier", available[0])
			return available[0]
		}
	}

	k.log.Info("defaulting carrier selection", "carrier", carrierPreference[0])
	return carrierPreference[0]
}

// carrierPayloadPath resolves the loader stub inside the payload layout
// <name>-<arch>/<name>.dll.
func carrierPayloadPath(payloadDir, carrier, arch string) string {
	stem := strings.TrimSuffix(carrier, filepath.Ext(carrier))
	return filepath.Join(payloadDir, stem+"-"+arch, carrier)
}

// Install places the loader stub at the selected carrier, stages the
// SmokeAPI binary pair into the game root, and writes the loader config.
// Any direct-mode installation at the root is uninstalled first so two
// techniques never hold backups for the same filename.
func (k *Koaloader) Install(gameDir string, dlcIDs []int, appID int, payloadDir string) bool {
	if ok, reason := validate.Gate(gameDir, appID, dlcIDs, validate.DefaultMinFreeBytes); !ok {
		k.log.Error("validation failed", "unlocker", k.DisplayName(), "reason", reason)
		return false
	}
	if ok, reason := validate.Directory(payloadDir); !ok {
		k.log.Error("payload directory unavailable", "reason", reason)
		return false
	}

	arch := steamapi.DetectArchitecture(gameDir)
	if arch == "" {
		k.log.Error("could not detect game architecture, no steam_api DLL found", "dir", gameDir)
		return false
	}
	k.log.Info("detected game architecture", "arch", arch)

	if !k.undoDirectModeAtRoot(gameDir) {
		k.log.Error("could not remove existing direct-mode installation, aborting")
		return false
	}

	carrier := k.SelectCarrier(gameDir, payloadDir, arch)
	carrierPath := filepath.Join(gameDir, carrier)
	backupPath := filepath.Join(gameDir, carrierBackupName(carrier))

	if fileutil.FileExists(carrierPath) && !fileutil.FileExists(backupPath) {
		k.log.Info("backing up original carrier", "carrier", carrier)
		if err := fileutil.CopyFile(carrierPath, backupPath); err != nil {
			k.log.Error("carrier backup failed", "error", err)
			return false
		}
	}

	stub := carrierPayloadPath(payloadDir, carrier, arch)
	if !fileutil.FileExists(stub) {
		k.log.Error("loader stub not found in payload directory",
			"expected", filepath.Base(filepath.Dir(stub))+"/"+carrier)
		return false
	}
	if err := checkReplace(stub, carrierPath); err != nil {
		k.log.Error("carrier not replaceable", "carrier", carrier, "error", err)
		return false
	}
	k.log.Info("installing loader stub", "carrier", carrier)
	if err := fileutil.CopyFile(stub, carrierPath); err != nil {
		k.log.Error("loader stub install failed", "error", err)
		return false
	}

	if !k.stageChainedModules(gameDir, payloadDir) {
		return false
	}

	cfg := k.generateConfig()
	configPath := filepath.Join(gameDir, koaloaderConfigFilename)
	k.log.Info("writing configuration", "file", koaloaderConfigFilename)
	if err := fileutil.AtomicWriteJSON(configPath, cfg); err != nil {
		k.log.Error("config write failed", "error", err)
		return false
	}

	k.log.Info("Koaloader installation complete", "carrier", carrier, "arch", arch)
	return true
}

// undoDirectModeAtRoot restores any SmokeAPI/CreamAPI backup held at the
// game root and removes their configs, so the proxy install never
// coexists with a direct one. Returns false when a restore fails.
func (k *Koaloader) undoDirectModeAtRoot(gameDir string) bool {
	for _, dllName := range []string{steamapi.DLL32, steamapi.DLL64} {
		backupPath := filepath.Join(gameDir, steamapi.BackupName(dllName))
		if !fileutil.FileExists(backupPath) {
			continue
		}
		k.log.Info("removing direct-mode installation before proxy install", "target", dllName)
		if err := restoreBackup(backupPath, filepath.Join(gameDir, dllName)); err != nil {
			k.log.Error("could not restore direct-mode backup", "target", dllName, "error", err)
			return false
		}
	}
	for _, name := range []string{smokeConfigFilename, creamConfigFilename} {
		if err := fileutil.RemoveIfExists(filepath.Join(gameDir, name)); err != nil {
			k.log.Warn("could not remove direct-mode config", "file", name, "error", err)
		}
	}
	return true
}

// stageChainedModules copies the SmokeAPI binary pair into the game root,
// accepting both release names and the CreamInstaller layout.
func (k *Koaloader) stageChainedModules(gameDir, payloadDir string) bool {
	mappings := [][2]string{
		{smokeDLL32, smokeDLL32},
		{smokeDLL64, smokeDLL64},
		{steamapi.DLL32, smokeDLL32},
		{steamapi.DLL64, smokeDLL64},
	}

	staged := map[string]bool{}
	for _, m := range mappings {
		src := filepath.Join(payloadDir, m[0])
		if !fileutil.FileExists(src) || staged[m[1]] {
			continue
		}
		k.log.Info("staging chained module", "from", m[0], "as", m[1])
		if err := fileutil.CopyFile(src, filepath.Join(gameDir, m[1])); err != nil {
			k.log.Error("could not stage chained module", "file", m[1], "error", err)
			return false
		}
		staged[m[1]] = true
	}

	if len(staged) == 0 {
		k.log.Error("no SmokeAPI payload found to chain-load",
			"payload_dir", payloadDir)
		return false
	}
	return true
}

// Uninstall removes the loader config, restores or removes the carrier,
// and deletes the staged SmokeAPI modules. A root with no Koaloader
// artifacts is a successful no-op.
func (k *Koaloader) Uninstall(gameDir string) bool {
	hadConfig := fileutil.FileExists(filepath.Join(gameDir, koaloaderConfigFilename))
	for _, name := range koaloaderConfigNames {
		if err := fileutil.RemoveIfExists(filepath.Join(gameDir, name)); err != nil {
			k.log.Warn("could not remove config", "file", name, "error", err)
		}
	}

	ok := true
	for _, carrier := range koaloaderCarriers {
		carrierPath := filepath.Join(gameDir, carrier)
		backupPath := filepath.Join(gameDir, carrierBackupName(carrier))

		switch {
		case fileutil.FileExists(backupPath):
			k.log.Info("restoring carrier backup", "carrier", carrier)
			if err := restoreBackup(backupPath, carrierPath); err != nil {
				k.log.Error("carrier restore failed", "carrier", carrier, "error", err)
				ok = false
			}
		case hadConfig && fileutil.FileExists(carrierPath):
			// The loader config marks this as our stub; without it a bare
			// carrier may be the game's own file and is left alone.
			k.log.Info("removing loader stub with no prior carrier", "carrier", carrier)
			if err := os.Remove(carrierPath); err != nil {
				k.log.Error("could not remove loader stub", "carrier", carrier, "error", err)
				ok = false
			}
		}
	}

	for _, name := range []string{smokeDLL32, smokeDLL64} {
		if err := fileutil.RemoveIfExists(filepath.Join(gameDir, name)); err != nil {
			k.log.Warn("could not remove chained module", "file", name, "error", err)
		}
	}

	k.log.Info("Koaloader uninstall complete")
	return ok
}

// GenerateConfig implements Unlocker. Koaloader itself takes no DLC list;
// the chained SmokeAPI unlocks everything.
func (k *Koaloader) GenerateConfig(dlcIDs []int, appID int) any {
	return k.generateConfig()
}

func (k *Koaloader) generateConfig() *koaloaderConfig {
	return &koaloaderConfig{
		Logging:  false,
		Enabled:  true,
		AutoLoad: true,
		Targets:  []string{},
		Modules:  []string{smokeDLL32, smokeDLL64},
	}
}
