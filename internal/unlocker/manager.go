package unlocker

import (
	"log/slog"
	"path/filepath"

	"github.com/Midrags/SMD/internal/settings"
	"github.com/Midrags/SMD/pkg/fileutil"
)

// Platform signature filenames checked by DetectPlatform.
var (
	steamSignatures   = []string{"steam_api.dll", "steam_api64.dll"}
	ubisoftSignatures = []string{"uplay_r1_loader.dll", "upc_r2_loader.dll"}
)

// Manager selects platform-compatible unlocker variants, tracks the
// active technique per game through an external settings collaborator,
// and performs proxy/direct migration before installs.
type Manager struct {
	log       *slog.Logger
	store     settings.Store
	unlockers []Unlocker
}

// NewManager creates a manager holding all five variants in stable order.
// The store is the external key-value collaborator for active-technique
// tracking; the manager never owns persistence itself.
func NewManager(log *slog.Logger, store settings.Store) *Manager {
	return &Manager{
		log:   log,
		store: store,
		unlockers: []Unlocker{
			NewSmokeAPI(log),
			NewCreamAPI(log),
			NewKoaloader(log),
			NewUplayR1(log),
			NewUplayR2(log),
		},
	}
}

// All returns every variant in stable order.
func (m *Manager) All() []Unlocker {
	return m.unlockers
}

// DetectPlatform infers the distribution platform from signature
// binaries at the game root: Steam DLLs first, then Ubisoft loaders.
// When neither is present the result defaults to Steam; that is an
// explicit fallback, not an error.
func (m *Manager) DetectPlatform(gameDir string) Platform {
	for _, sig := range steamSignatures {
		if fileutil.FileExists(filepath.Join(gameDir, sig)) {
			m.log.Info("detected Steam platform", "dir", gameDir)
			return PlatformSteam
		}
	}
	for _, sig := range ubisoftSignatures {
		if fileutil.FileExists(filepath.Join(gameDir, sig)) {
			m.log.Info("detected Ubisoft Connect platform", "dir", gameDir)
			return PlatformUbisoft
		}
	}
	m.log.Warn("no platform signature found, defaulting to Steam", "dir", gameDir)
	return PlatformSteam
}

// Compatible filters the variants to those supporting the platform,
// preserving stable order.
func (m *Manager) Compatible(platform Platform) []Unlocker {
	var compatible []Unlocker
	for _, u := range m.unlockers {
		if supportsPlatform(u, platform) {
			compatible = append(compatible, u)
		}
	}
	m.log.Info("filtered compatible unlockers",
		"platform", platform, "count", len(compatible))
	return compatible
}

// ByType returns the variant for a type.
func (m *Manager) ByType(t Type) (Unlocker, bool) {
	for _, u := range m.unlockers {
		if u.Type() == t {
			return u, true
		}
	}
	return nil, false
}

// ActiveUnlocker reads the recorded technique for an app id from the
// settings collaborator. An unparseable stored value reads as none.
func (m *Manager) ActiveUnlocker(appID int) (Type, bool) {
	name, ok, err := m.store.ActiveUnlocker(appID)
	if err != nil {
		m.log.Warn("could not read active unlocker", "app_id", appID, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}
	t, err := ParseType(name)
	if err != nil {
		m.log.Warn("invalid active unlocker recorded", "app_id", appID, "value", name)
		return "", false
	}
	return t, true
}

// SetActiveUnlocker records the technique for an app id.
func (m *Manager) SetActiveUnlocker(appID int, t Type) error {
	if err := m.store.SetActiveUnlocker(appID, string(t)); err != nil {
		return err
	}
	m.log.Info("recorded active unlocker", "app_id", appID, "unlocker", t)
	return nil
}

// proxyIndicatorsAtRoot reports proxy-mode artifacts at the game root:
// known carrier filenames, or a loader config whose module list
// references a direct-mode binary by name.
func (m *Manager) proxyIndicatorsAtRoot(gameDir string) []string {
	var found []string
	for _, name := range koaloaderConfigNames {
		cfgPath := filepath.Join(gameDir, name)
		if !fileutil.FileExists(cfgPath) {
			continue
		}
		if koaloaderConfigReferencesModule(cfgPath, "smoke_api") ||
			koaloaderConfigReferencesModule(cfgPath, "steam_api") {
			m.log.Info("found loader config referencing a direct-mode binary", "file", name)
		}
		found = append(found, cfgPath)
	}
	for _, carrier := range koaloaderCarriers {
		p := filepath.Join(gameDir, carrierBackupName(carrier))
		if fileutil.FileExists(p) {
			m.log.Info("found carrier backup", "carrier", carrier)
			found = append(found, p)
		}
	}
	return found
}

// Install runs the full flow for one technique: proxy/direct migration,
// the variant's install, and active-technique recording. Returns true
// only when every step succeeded.
func (m *Manager) Install(gameDir string, t Type, dlcIDs []int, appID int, payloadDir string) bool {
	u, ok := m.ByType(t)
	if !ok {
		m.log.Error("unknown unlocker type", "type", t)
		return false
	}

	// A direct-mode install over an existing proxy installation would
	// leave two techniques holding backups for the same filename. Migrate
	// by uninstalling the proxy first; abort if that fails.
	if t == TypeSmokeAPI || t == TypeCreamAPI {
		if indicators := m.proxyIndicatorsAtRoot(gameDir); len(indicators) > 0 {
			m.log.Info("proxy-mode installation detected, removing before direct install",
				"indicators", len(indicators))
			koa, _ := m.ByType(TypeKoaloader)
			if !koa.Uninstall(gameDir) {
				m.log.Error("proxy-mode uninstall failed, aborting direct install")
				return false
			}
		}
	}

	if !u.Install(gameDir, dlcIDs, appID, payloadDir) {
		return false
	}

	if err := m.SetActiveUnlocker(appID, t); err != nil {
		m.log.Warn("install succeeded but recording active unlocker failed", "error", err)
	}
	return true
}

// Uninstall runs the variant's uninstall and clears the recorded
// technique when it matches.
func (m *Manager) Uninstall(gameDir string, t Type, appID int) bool {
	u, ok := m.ByType(t)
	if !ok {
		m.log.Error("unknown unlocker type", "type", t)
		return false
	}

	if !u.Uninstall(gameDir) {
		return false
	}

	if active, ok := m.ActiveUnlocker(appID); ok && active == t {
		if err := m.store.ClearActiveUnlocker(appID); err != nil {
			m.log.Warn("could not clear active unlocker", "app_id", appID, "error", err)
		}
	}
	return true
}
