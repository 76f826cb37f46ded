package unlocker

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Midrags/SMD/internal/steamapi"
	"github.com/Midrags/SMD/internal/validate"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// uplayConfig is the JSONC artifact shared by both Uplay unlockers. An
// empty blacklist unlocks every DLC.
type uplayConfig struct {
	Logging    bool     `json:"logging"`
	Lang       string   `json:"lang"`
	HookLoader *bool    `json:"hook_loader,omitempty"`
	Blacklist  []string `json:"blacklist"`
}

// uplayUnlocker is the shared implementation behind the R1 and R2
// variants: exactly one fixed target DLL at the game root, no recursive
// discovery, same backup/replace/restore contract as the Steam
// techniques.
type uplayUnlocker struct {
	log *slog.Logger

	typ         Type
	displayName string
	targetDLL   string
	payloadDLL  string
	configName  string
	hookLoader  bool // R1 config carries a hook_loader flag, R2 does not
}

// NewUplayR1 creates the unlocker for legacy uplay_r1_loader games.
func NewUplayR1(log *slog.Logger) Unlocker {
	return &uplayUnlocker{
		log:         log,
		typ:         TypeUplayR1,
		displayName: "Uplay R1 Unlocker",
		targetDLL:   "uplay_r1_loader.dll",
		payloadDLL:  "UplayR1Unlocker.dll",
		configName:  "UplayR1Unlocker.jsonc",
		hookLoader:  true,
	}
}

// NewUplayR2 creates the unlocker for newer upc_r2_loader games.
func NewUplayR2(log *slog.Logger) Unlocker {
	return &uplayUnlocker{
		log:         log,
		typ:         TypeUplayR2,
		displayName: "Uplay R2 Unlocker",
		targetDLL:   "upc_r2_loader.dll",
		payloadDLL:  "UplayR2Unlocker.dll",
		configName:  "UplayR2Unlocker.jsonc",
	}
}

func (u *uplayUnlocker) Type() Type            { return u.typ }
func (u *uplayUnlocker) Platforms() []Platform { return []Platform{PlatformUbisoft} }
func (u *uplayUnlocker) DisplayName() string   { return u.displayName }

func (u *uplayUnlocker) backupPath(gameDir string) string {
	return filepath.Join(gameDir, steamapi.BackupName(u.targetDLL))
}

// IsInstalled reports whether this variant's backup artifact or config
// is present at the game root.
func (u *uplayUnlocker) IsInstalled(gameDir string) bool {
	return fileutil.FileExists(u.backupPath(gameDir)) ||
		fileutil.FileExists(filepath.Join(gameDir, u.configName))
}

// Install backs up and replaces the single target DLL and writes the
// config artifact. Re-installing refreshes the payload and config while
// keeping the existing backup.
func (u *uplayUnlocker) Install(gameDir string, dlcIDs []int, appID int, payloadDir string) bool {
	if ok, reason := validate.Gate(gameDir, appID, dlcIDs, validate.DefaultMinFreeBytes); !ok {
		u.log.Error("validation failed", "unlocker", u.displayName, "reason", reason)
		return false
	}
	if ok, reason := validate.Directory(payloadDir); !ok {
		u.log.Error("payload directory unavailable", "reason", reason)
		return false
	}

	targetPath := filepath.Join(gameDir, u.targetDLL)
	backupPath := u.backupPath(gameDir)

	if !fileutil.FileExists(targetPath) && !fileutil.FileExists(backupPath) {
		u.log.Error("target DLL not found, game may be incompatible",
			"target", u.targetDLL)
		return false
	}

	if !fileutil.FileExists(backupPath) {
		u.log.Info("backing up original", "from", u.targetDLL,
			"to", filepath.Base(backupPath))
		if err := fileutil.CopyFile(targetPath, backupPath); err != nil {
			u.log.Error("backup failed", "error", err)
			return false
		}
	} else {
		u.log.Debug("backup already exists", "file", filepath.Base(backupPath))
	}

	payload := filepath.Join(payloadDir, u.payloadDLL)
	if !fileutil.FileExists(payload) {
		u.log.Error("unlocker payload not found", "expected", u.payloadDLL,
			"payload_dir", payloadDir)
		return false
	}
	if err := checkReplace(payload, targetPath); err != nil {
		u.log.Error("target not replaceable", "target", u.targetDLL, "error", err)
		return false
	}
	u.log.Info("installing unlocker", "from", u.payloadDLL, "as", u.targetDLL)
	if err := fileutil.CopyFile(payload, targetPath); err != nil {
		u.log.Error("payload install failed", "error", err)
		return false
	}

	configPath := filepath.Join(gameDir, u.configName)
	u.log.Info("writing configuration", "file", u.configName)
	if err := fileutil.AtomicWriteJSON(configPath, u.generateConfig()); err != nil {
		u.log.Error("config write failed", "error", err)
		return false
	}

	u.log.Info("installation complete", "unlocker", u.displayName)
	return true
}

// Uninstall removes the config, restores the backup onto the target, and
// cleans any payload-named copy. A root with no backup is a no-op; a
// target present without a backup is left in place with a warning.
func (u *uplayUnlocker) Uninstall(gameDir string) bool {
	configPath := filepath.Join(gameDir, u.configName)
	if err := fileutil.RemoveIfExists(configPath); err != nil {
		u.log.Warn("could not remove config", "error", err)
	}

	targetPath := filepath.Join(gameDir, u.targetDLL)
	backupPath := u.backupPath(gameDir)

	switch {
	case fileutil.FileExists(backupPath):
		u.log.Info("restoring backup", "from", filepath.Base(backupPath),
			"to", u.targetDLL)
		if err := restoreBackup(backupPath, targetPath); err != nil {
			u.log.Error("restore failed", "error", err)
			return false
		}
	case fileutil.FileExists(targetPath):
		u.log.Warn("no backup found, leaving target in place",
			"target", u.targetDLL)
	}

	stray := filepath.Join(gameDir, u.payloadDLL)
	if fileutil.FileExists(stray) {
		u.log.Info("removing payload copy", "file", u.payloadDLL)
		if err := os.Remove(stray); err != nil {
			u.log.Warn("could not remove payload copy", "error", err)
		}
	}

	u.log.Info("uninstall complete", "unlocker", u.displayName)
	return true
}

// GenerateConfig implements Unlocker. Uplay unlockers take no DLC list;
// an empty blacklist unlocks everything.
func (u *uplayUnlocker) GenerateConfig(dlcIDs []int, appID int) any {
	return u.generateConfig()
}

func (u *uplayUnlocker) generateConfig() *uplayConfig {
	cfg := &uplayConfig{
		Logging:   false,
		Lang:      "default",
		Blacklist: []string{},
	}
	if u.hookLoader {
		f := false
		cfg.HookLoader = &f
	}
	return cfg
}
