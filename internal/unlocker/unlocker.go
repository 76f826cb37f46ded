// Package unlocker implements the install/uninstall engine for DLC
// unlocking techniques applied to a local game installation.
//
// Five variants share one contract: two direct-replacement techniques for
// Steam (SmokeAPI, CreamAPI), one proxy loader for Steam (Koaloader), and
// two single-target techniques for Ubisoft Connect (Uplay R1/R2). The
// presence of a backup-suffix artifact beside a target binary is the sole
// durable marker that a technique is installed; nothing is cached in
// memory across operations.
package unlocker

import (
	"github.com/Midrags/SMD/internal/errors"
)

// Type identifies an unlocker variant. The set is closed; the string
// values are persisted in settings and must stay stable.
type Type string

const (
	TypeSmokeAPI  Type = "smokeapi"
	TypeCreamAPI  Type = "creamapi"
	TypeKoaloader Type = "koaloader"
	TypeUplayR1   Type = "uplay_r1"
	TypeUplayR2   Type = "uplay_r2"
)

// Types returns all unlocker types in stable order.
func Types() []Type {
	return []Type{TypeSmokeAPI, TypeCreamAPI, TypeKoaloader, TypeUplayR1, TypeUplayR2}
}

// ParseType converts a stored string into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeSmokeAPI, TypeCreamAPI, TypeKoaloader, TypeUplayR1, TypeUplayR2:
		return Type(s), nil
	}
	return "", errors.Wrapf(errors.ErrUnknownUnlocker, "%q", s)
}

// Platform is the distribution client family a game is tied to, inferred
// from which signature binaries are present in its directory.
type Platform string

const (
	PlatformSteam   Platform = "steam"
	PlatformUbisoft Platform = "ubisoft"
)

// Unlocker is the contract every technique variant implements. All
// operations derive state fresh from disk; implementations hold no
// mutable state beyond a logger.
type Unlocker interface {
	// Type returns the variant identifier.
	Type() Type

	// Platforms returns the platforms this variant supports.
	Platforms() []Platform

	// DisplayName returns a human-readable name for output.
	DisplayName() string

	// IsInstalled reports whether this variant's own backup artifacts or
	// config filename are present under gameDir. Another technique's
	// artifacts must not trigger it.
	IsInstalled(gameDir string) bool

	// Install applies the technique to every discovered location:
	// validation gate, then per location delete any rival config, back up
	// the original if no backup exists yet, copy the architecture-matching
	// replacement binary from payloadDir over the target, and write the
	// config artifact. Per-location failures are collected, already
	// patched locations are not rolled back, and the result is true iff
	// every location succeeded.
	Install(gameDir string, dlcIDs []int, appID int, payloadDir string) bool

	// Uninstall locates installations by backup artifacts, restores the
	// backed-up bytes onto the target, and deletes backup and config. A
	// tree with no backups is success-as-no-op, with orphaned config
	// files still cleaned up.
	Uninstall(gameDir string) bool

	// GenerateConfig builds the technique-native configuration payload,
	// including every supplied DLC id.
	GenerateConfig(dlcIDs []int, appID int) any
}

// supportsPlatform reports whether u declares support for p.
func supportsPlatform(u Unlocker, p Platform) bool {
	for _, sp := range u.Platforms() {
		if sp == p {
			return true
		}
	}
	return false
}
