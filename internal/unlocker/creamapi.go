package unlocker

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/steamapi"
	"github.com/Midrags/SMD/internal/validate"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// creamConfigFilename is the CreamAPI INI artifact, an external contract.
const creamConfigFilename = "cream_api.ini"

// CreamAPI is the INI-configured alternative to SmokeAPI. It replaces the
// same steam_api DLLs and shares the backup suffix convention, so
// installing one over the other reuses the existing backup and only the
// config artifact changes hands.
type CreamAPI struct {
	log *slog.Logger
}

// NewCreamAPI creates the CreamAPI unlocker.
func NewCreamAPI(log *slog.Logger) *CreamAPI {
	return &CreamAPI{log: log}
}

func (c *CreamAPI) Type() Type            { return TypeCreamAPI }
func (c *CreamAPI) Platforms() []Platform { return []Platform{PlatformSteam} }
func (c *CreamAPI) DisplayName() string   { return "CreamAPI" }

// IsInstalled reports whether a CreamAPI config exists anywhere in the
// tree. The INI artifact is the discriminator because the backup suffix
// is shared with SmokeAPI.
func (c *CreamAPI) IsInstalled(gameDir string) bool {
	if len(findAllNamed(gameDir, creamConfigFilename)) > 0 {
		return true
	}
	// Backups with no config from either technique are ambiguous; without
	// a SmokeAPI config they are claimed by nobody, so leave them to the
	// technique that made them.
	return false
}

// Install applies CreamAPI to every discovered steam_api location.
func (c *CreamAPI) Install(gameDir string, dlcIDs []int, appID int, payloadDir string) bool {
	if ok, reason := validate.Gate(gameDir, appID, dlcIDs, validate.DefaultMinFreeBytes); !ok {
		c.log.Error("validation failed", "unlocker", c.DisplayName(), "reason", reason)
		return false
	}
	if ok, reason := validate.Directory(payloadDir); !ok {
		c.log.Error("payload directory unavailable", "reason", reason)
		return false
	}

	locations := steamapi.FindAllLocations(gameDir)
	if len(locations) == 0 {
		c.log.Error("no steam_api DLL found anywhere in game tree", "dir", gameDir)
		return false
	}
	c.log.Info("discovered installation locations", "count", len(locations))

	iniText, err := c.renderINI(dlcIDs, appID)
	if err != nil {
		c.log.Error("could not render config", "error", err)
		return false
	}

	var failed int
	for _, loc := range locations {
		payload := filepath.Join(payloadDir, loc.DLLName)
		if !fileutil.FileExists(payload) {
			c.log.Error("CreamAPI payload DLL not found",
				"payload_dir", payloadDir, "dll", loc.DLLName)
			failed++
			continue
		}
		if err := c.installToLocation(gameDir, loc, payload, iniText); err != nil {
			c.log.Error("install failed at location",
				"location", relLabel(gameDir, loc.Dir), "error", err)
			failed++
		}
	}

	c.log.Info("install summary",
		"succeeded", len(locations)-failed, "failed", failed)
	return failed == 0
}

func (c *CreamAPI) installToLocation(gameDir string, loc steamapi.Location, payload string, iniText []byte) error {
	label := relLabel(gameDir, loc.Dir)
	targetPath := filepath.Join(loc.Dir, loc.DLLName)
	backupPath := filepath.Join(loc.Dir, steamapi.BackupName(loc.DLLName))

	if err := checkReplace(payload, targetPath); err != nil {
		return err
	}

	// Switching from SmokeAPI must not leave its config behind.
	rival := filepath.Join(loc.Dir, smokeConfigFilename)
	if fileutil.FileExists(rival) {
		c.log.Info("removing competing SmokeAPI config", "location", label)
		if err := fileutil.RemoveIfExists(rival); err != nil {
			return err
		}
	}

	if !fileutil.FileExists(backupPath) {
		if !fileutil.FileExists(targetPath) {
			return errNoOriginal(targetPath)
		}
		c.log.Info("creating backup", "location", label,
			"from", loc.DLLName, "to", filepath.Base(backupPath))
		if err := fileutil.CopyFile(targetPath, backupPath); err != nil {
			return err
		}
	}

	c.log.Info("installing CreamAPI", "location", label, "target", loc.DLLName)
	if err := fileutil.CopyFile(payload, targetPath); err != nil {
		return err
	}

	configPath := filepath.Join(loc.Dir, creamConfigFilename)
	c.log.Info("writing configuration", "location", label, "file", creamConfigFilename)
	return fileutil.AtomicWriteFile(configPath, iniText, 0o644)
}

// Uninstall restores every location discovered by backup artifacts and
// removes the INI config. No backups anywhere is success-as-no-op with
// orphan config cleanup.
func (c *CreamAPI) Uninstall(gameDir string) bool {
	locations := steamapi.FindBackupLocations(gameDir)
	if len(locations) == 0 {
		c.log.Info("no CreamAPI installation found, nothing to restore")
		for _, cfg := range findAllNamed(gameDir, creamConfigFilename) {
			c.log.Info("removing orphaned config", "path", relLabel(gameDir, filepath.Dir(cfg)))
			if err := os.Remove(cfg); err != nil {
				c.log.Warn("could not remove config", "error", err)
			}
		}
		return true
	}

	var failed int
	for _, loc := range locations {
		label := relLabel(gameDir, loc.Dir)
		targetPath := filepath.Join(loc.Dir, loc.DLLName)
		backupPath := filepath.Join(loc.Dir, steamapi.BackupName(loc.DLLName))

		c.log.Info("restoring backup", "location", label,
			"from", filepath.Base(backupPath), "to", loc.DLLName)
		if err := restoreBackup(backupPath, targetPath); err != nil {
			c.log.Error("uninstall failed at location", "location", label, "error", err)
			failed++
			continue
		}

		configPath := filepath.Join(loc.Dir, creamConfigFilename)
		if fileutil.FileExists(configPath) {
			c.log.Info("removing configuration", "location", label)
			if err := os.Remove(configPath); err != nil {
				c.log.Error("could not remove config", "location", label, "error", err)
				failed++
			}
		}
	}

	c.log.Info("uninstall summary",
		"succeeded", len(locations)-failed, "failed", failed)
	return failed == 0
}

// creamConfig mirrors the INI sections for callers that want the config
// as a value rather than rendered text.
type creamConfig struct {
	AppID                int
	DLCIDs               []int
	UnlockAll            bool
	OrgAPI               string
	OrgAPI64             string
	ExtraProtection      bool
	ForceOffline         bool
	DisableUserInterface bool
}

// GenerateConfig implements Unlocker.
func (c *CreamAPI) GenerateConfig(dlcIDs []int, appID int) any {
	return &creamConfig{
		AppID:                appID,
		DLCIDs:               dlcIDs,
		UnlockAll:            false,
		OrgAPI:               steamapi.BackupName(steamapi.DLL32),
		OrgAPI64:             steamapi.BackupName(steamapi.DLL64),
		ExtraProtection:      false,
		ForceOffline:         false,
		DisableUserInterface: false,
	}
}

// renderINI produces the cream_api.ini text. The section and key layout
// is fixed by the CreamAPI loader (v5.3.0.0+ requires [steam_misc]).
func (c *CreamAPI) renderINI(dlcIDs []int, appID int) ([]byte, error) {
	f := ini.Empty()

	steam, err := f.NewSection("steam")
	if err != nil {
		return nil, errors.Wrap(err, "building [steam] section")
	}
	steam.NewKey("appid", strconv.Itoa(appID))
	steam.NewKey("unlockall", "false")
	steam.NewKey("orgapi", steamapi.BackupName(steamapi.DLL32))
	steam.NewKey("orgapi64", steamapi.BackupName(steamapi.DLL64))
	steam.NewKey("extraprotection", "false")
	steam.NewKey("forceoffline", "false")

	misc, err := f.NewSection("steam_misc")
	if err != nil {
		return nil, errors.Wrap(err, "building [steam_misc] section")
	}
	misc.NewKey("disableuserinterface", "false")

	dlc, err := f.NewSection("dlc")
	if err != nil {
		return nil, errors.Wrap(err, "building [dlc] section")
	}
	for _, id := range dlcIDs {
		dlc.NewKey(strconv.Itoa(id), "DLC_"+strconv.Itoa(id))
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering INI")
	}
	return buf.Bytes(), nil
}
