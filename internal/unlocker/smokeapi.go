package unlocker

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Midrags/SMD/internal/steamapi"
	"github.com/Midrags/SMD/internal/validate"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// SmokeAPI artifact names. The config filename and payload DLL names are
// external contracts shared with CreamInstaller-family tooling.
const (
	smokeConfigFilename = "SmokeAPI.config.json"
	smokeDLL32          = "smoke_api32.dll"
	smokeDLL64          = "smoke_api64.dll"
)

// smokeConfig is the SmokeAPI.config.json schema (format version 4).
type smokeConfig struct {
	Version              int                 `json:"$version"`
	Logging              bool                `json:"logging"`
	LogSteamHTTP         bool                `json:"log_steam_http"`
	DefaultAppStatus     string              `json:"default_app_status"`
	OverrideAppStatus    map[string]string   `json:"override_app_status"`
	OverrideDLCStatus    map[string]string   `json:"override_dlc_status"`
	AutoInjectInventory  bool                `json:"auto_inject_inventory"`
	ExtraInventoryItems  []int               `json:"extra_inventory_items"`
	ExtraDLCs            map[string]struct{} `json:"extra_dlcs"`
}

// SmokeAPI replaces steam_api DLLs with versions that report every DLC as
// owned. Multi-binary engines ship several redistributable copies of the
// DLL, so install and uninstall iterate every discovered location.
type SmokeAPI struct {
	log *slog.Logger
}

// NewSmokeAPI creates the SmokeAPI unlocker.
func NewSmokeAPI(log *slog.Logger) *SmokeAPI {
	return &SmokeAPI{log: log}
}

func (s *SmokeAPI) Type() Type            { return TypeSmokeAPI }
func (s *SmokeAPI) Platforms() []Platform { return []Platform{PlatformSteam} }
func (s *SmokeAPI) DisplayName() string   { return "SmokeAPI" }

// IsInstalled reports whether a steam_api backup artifact exists that
// belongs to SmokeAPI. Backups share the suffix convention with CreamAPI,
// so the config artifact discriminates: a backup alongside a CreamAPI
// config belongs to CreamAPI.
func (s *SmokeAPI) IsInstalled(gameDir string) bool {
	if len(findAllNamed(gameDir, smokeConfigFilename)) > 0 {
		return true
	}
	if len(steamapi.FindBackupLocations(gameDir)) == 0 {
		return false
	}
	return len(findAllNamed(gameDir, creamConfigFilename)) == 0
}

// Install applies SmokeAPI to every discovered location. Failures at
// individual locations are collected and do not halt the remaining
// locations; nothing already patched is rolled back.
func (s *SmokeAPI) Install(gameDir string, dlcIDs []int, appID int, payloadDir string) bool {
	if ok, reason := validate.Gate(gameDir, appID, dlcIDs, validate.DefaultMinFreeBytes); !ok {
		s.log.Error("validation failed", "unlocker", s.DisplayName(), "reason", reason)
		return false
	}
	if ok, reason := validate.Directory(payloadDir); !ok {
		s.log.Error("payload directory unavailable", "reason", reason)
		return false
	}

	locations := steamapi.FindAllLocations(gameDir)
	if len(locations) == 0 {
		s.log.Error("no steam_api DLL found anywhere in game tree", "dir", gameDir)
		return false
	}
	s.log.Info("discovered installation locations", "count", len(locations))

	cfg := s.generateConfig(dlcIDs, appID)

	var failed int
	for _, loc := range locations {
		payload := s.payloadPath(payloadDir, loc)
		if payload == "" {
			s.log.Error("SmokeAPI payload DLL not found",
				"payload_dir", payloadDir, "arch", loc.Arch)
			failed++
			continue
		}
		if err := s.installToLocation(gameDir, loc, payload, cfg); err != nil {
			s.log.Error("install failed at location",
				"location", relLabel(gameDir, loc.Dir), "error", err)
			failed++
		}
	}

	s.log.Info("install summary",
		"succeeded", len(locations)-failed, "failed", failed)
	return failed == 0
}

// payloadPath resolves the replacement DLL for a location, accepting both
// the CreamInstaller layout (already renamed to the target filename) and
// the release layout (smoke_api32.dll / smoke_api64.dll).
func (s *SmokeAPI) payloadPath(payloadDir string, loc steamapi.Location) string {
	if p := filepath.Join(payloadDir, loc.DLLName); fileutil.FileExists(p) {
		return p
	}
	name := smokeDLL32
	if loc.Arch == "64" {
		name = smokeDLL64
	}
	if p := filepath.Join(payloadDir, name); fileutil.FileExists(p) {
		return p
	}
	return ""
}

// installToLocation performs the per-location sequence: rival config
// removal, idempotent backup, payload copy, config write. A nil cfg
// deletes the config artifact instead (unlock-all needs no file).
func (s *SmokeAPI) installToLocation(gameDir string, loc steamapi.Location, payload string, cfg *smokeConfig) error {
	label := relLabel(gameDir, loc.Dir)
	targetPath := filepath.Join(loc.Dir, loc.DLLName)
	backupPath := filepath.Join(loc.Dir, steamapi.BackupName(loc.DLLName))

	if err := checkReplace(payload, targetPath); err != nil {
		return err
	}

	// A CreamAPI config at the same location belongs to the competing
	// technique and must not survive the switch.
	rival := filepath.Join(loc.Dir, creamConfigFilename)
	if fileutil.FileExists(rival) {
		s.log.Info("removing competing CreamAPI config", "location", label)
		if err := fileutil.RemoveIfExists(rival); err != nil {
			return err
		}
	}

	if !fileutil.FileExists(backupPath) {
		if !fileutil.FileExists(targetPath) {
			return errNoOriginal(targetPath)
		}
		s.log.Info("creating backup", "location", label,
			"from", loc.DLLName, "to", filepath.Base(backupPath))
		if err := fileutil.CopyFile(targetPath, backupPath); err != nil {
			return err
		}
	} else {
		s.log.Debug("backup already exists", "location", label)
	}

	s.log.Info("installing SmokeAPI", "location", label, "target", loc.DLLName)
	if err := fileutil.CopyFile(payload, targetPath); err != nil {
		return err
	}

	configPath := filepath.Join(loc.Dir, smokeConfigFilename)
	if cfg != nil {
		s.log.Info("writing configuration", "location", label, "file", smokeConfigFilename)
		return fileutil.AtomicWriteJSON(configPath, cfg)
	}
	return fileutil.RemoveIfExists(configPath)
}

// Uninstall restores every location discovered by its backup artifact.
// A tree with no backups is a successful no-op; orphaned config files are
// still removed.
func (s *SmokeAPI) Uninstall(gameDir string) bool {
	locations := steamapi.FindBackupLocations(gameDir)
	if len(locations) == 0 {
		s.log.Info("no SmokeAPI installation found, nothing to restore")
		for _, cfg := range findAllNamed(gameDir, smokeConfigFilename) {
			s.log.Info("removing orphaned config", "path", relLabel(gameDir, filepath.Dir(cfg)))
			if err := os.Remove(cfg); err != nil {
				s.log.Warn("could not remove config", "error", err)
			}
		}
		return true
	}

	var failed int
	for _, loc := range locations {
		if err := s.uninstallFromLocation(gameDir, loc); err != nil {
			s.log.Error("uninstall failed at location",
				"location", relLabel(gameDir, loc.Dir), "error", err)
			failed++
		}
	}

	// Stray payload copies staged by proxy-mode installs.
	for _, name := range []string{smokeDLL32, smokeDLL64} {
		for _, stray := range findAllNamed(gameDir, name) {
			s.log.Info("removing payload copy", "file", name)
			if err := os.Remove(stray); err != nil {
				s.log.Warn("could not remove payload copy", "error", err)
			}
		}
	}

	s.log.Info("uninstall summary",
		"succeeded", len(locations)-failed, "failed", failed)
	return failed == 0
}

func (s *SmokeAPI) uninstallFromLocation(gameDir string, loc steamapi.Location) error {
	label := relLabel(gameDir, loc.Dir)
	targetPath := filepath.Join(loc.Dir, loc.DLLName)
	backupPath := filepath.Join(loc.Dir, steamapi.BackupName(loc.DLLName))

	s.log.Info("restoring backup", "location", label,
		"from", filepath.Base(backupPath), "to", loc.DLLName)
	if err := restoreBackup(backupPath, targetPath); err != nil {
		return err
	}

	configPath := filepath.Join(loc.Dir, smokeConfigFilename)
	if fileutil.FileExists(configPath) {
		s.log.Info("removing configuration", "location", label)
		return os.Remove(configPath)
	}
	return nil
}

// GenerateConfig implements Unlocker.
func (s *SmokeAPI) GenerateConfig(dlcIDs []int, appID int) any {
	return s.generateConfig(dlcIDs, appID)
}

// generateConfig builds a CreamInstaller-compatible SmokeAPI config.
// Every supplied DLC id goes into extra_dlcs so ids added through other
// mechanisms remain visible instead of appearing removed.
func (s *SmokeAPI) generateConfig(dlcIDs []int, appID int) *smokeConfig {
	extra := make(map[string]struct{}, len(dlcIDs))
	for _, id := range dlcIDs {
		extra[strconv.Itoa(id)] = struct{}{}
	}
	return &smokeConfig{
		Version:             4,
		Logging:             false,
		LogSteamHTTP:        false,
		DefaultAppStatus:    "unlocked",
		OverrideAppStatus:   map[string]string{},
		OverrideDLCStatus:   map[string]string{},
		AutoInjectInventory: true,
		ExtraInventoryItems: []int{},
		ExtraDLCs:           extra,
	}
}

// DetectProxyMode scans for artifacts of a proxy-loader installation that
// chain-loads SmokeAPI: a Koaloader config whose module list references a
// SmokeAPI binary, or a known carrier DLL in the tree. The manager uses
// this to migrate proxy installs before a direct-mode install.
func (s *SmokeAPI) DetectProxyMode(gameDir string) []string {
	var found []string

	for _, name := range koaloaderConfigNames {
		for _, cfgPath := range findAllNamed(gameDir, name) {
			if koaloaderConfigReferencesModule(cfgPath, "smoke_api") {
				s.log.Info("found Koaloader config referencing SmokeAPI",
					"path", relLabel(gameDir, filepath.Dir(cfgPath)))
			}
			found = append(found, cfgPath)
		}
	}

	for _, carrier := range koaloaderCarriers {
		for _, p := range findAllNamed(gameDir, carrier) {
			s.log.Info("found proxy carrier DLL", "file", carrier)
			found = append(found, p)
		}
	}

	return found
}

// koaloaderConfigReferencesModule reports whether the Koaloader config at
// path lists a module whose path contains needle. Unparseable configs
// report false; callers still treat the file itself as a proxy indicator.
func koaloaderConfigReferencesModule(path, needle string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var cfg struct {
		Modules []json.RawMessage `json:"modules"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return false
	}
	for _, m := range cfg.Modules {
		var asString string
		if err := json.Unmarshal(m, &asString); err == nil {
			if strings.Contains(strings.ToLower(asString), needle) {
				return true
			}
			continue
		}
		var asObject struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(m, &asObject); err == nil {
			if strings.Contains(strings.ToLower(asObject.Path), needle) {
				return true
			}
		}
	}
	return false
}
