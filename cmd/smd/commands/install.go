package commands

import (
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/settings"
	"github.com/Midrags/SMD/internal/unlocker"
	"github.com/Midrags/SMD/internal/validate"
	"github.com/Midrags/SMD/pkg/fileutil"
)

var (
	installAppID      int
	installDLCIDs     []int
	installUnlocker   string
	installPayloadDir string
	installProxy      bool
)

func init() {
	installCmd.Flags().IntVar(&installAppID, "app-id", 0,
		"application id of the game (required)")
	installCmd.Flags().IntSliceVar(&installDLCIDs, "dlc", nil,
		"DLC ids to include in the generated configuration")
	installCmd.Flags().StringVarP(&installUnlocker, "unlocker", "u", "auto",
		"technique: smokeapi, creamapi, koaloader, uplay_r1, uplay_r2, or auto")
	installCmd.Flags().StringVar(&installPayloadDir, "payload-dir", "",
		"directory of pre-fetched replacement binaries (default: configured payload dir)")
	installCmd.Flags().BoolVar(&installProxy, "proxy", false,
		"prefer the proxy-loader technique on auto selection")
	installCmd.MarkFlagRequired("app-id")
	rootCmd.AddCommand(installCmd)
}

var installCmd = &cobra.Command{
	Use:   "install <game-dir>",
	Short: "Install a DLC unlocker into a game directory",
	Long: `Install a DLC unlocking technique into a game installation.

The target technique is chosen with --unlocker, or automatically from
the detected platform and configuration when set to auto. Originals are
preserved as backup files and every discovered location in the game tree
is patched. Replacement binaries must already exist in the payload
directory; smd never downloads them.`,
	Example: `  smd install ~/Games/MyGame --app-id 123 --dlc 10,11
  smd install ~/Games/MyGame --app-id 123 --unlocker creamapi
  smd install ~/Games/MyGame --app-id 123 --proxy`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func runInstall(_ *cobra.Command, args []string) error {
	gameDir, err := filepath.Abs(args[0])
	if err != nil {
		return errors.NewUserError(errors.Wrap(err, "resolving game directory"), "")
	}

	minBytes := cfg.MinFreeBytes
	if minBytes == 0 {
		minBytes = validate.DefaultMinFreeBytes
	}
	if ok, reason := validate.Gate(gameDir, installAppID, installDLCIDs, minBytes); !ok {
		return errors.NewUserError(
			errors.Mark(errors.New(reason), errors.ErrValidation), "")
	}

	mgr := unlocker.NewManager(log, settings.Default())

	t, err := resolveUnlockerType(mgr, gameDir, installUnlocker, installProxy)
	if err != nil {
		return err
	}

	payloadDir := installPayloadDir
	if payloadDir == "" {
		payloadDir = cfg.PayloadDir
	}
	// Variant payloads live in per-technique subdirectories of the cache.
	payloadDir = filepath.Join(payloadDir, string(t))

	if !mgr.Install(gameDir, t, installDLCIDs, installAppID, payloadDir) {
		return errors.NewSystemError(
			errors.Newf("install of %s did not complete cleanly", t),
			errors.SuggestElevate)
	}

	green := color.New(color.FgGreen)
	green.Printf("Installed %s", t)
	color.New(color.Faint).Printf(" (app id %d)\n", installAppID)
	return nil
}

// resolveUnlockerType maps the --unlocker flag to a concrete type,
// handling auto selection from platform and configuration.
func resolveUnlockerType(mgr *unlocker.Manager, gameDir, flag string, proxy bool) (unlocker.Type, error) {
	if flag != "auto" {
		t, err := unlocker.ParseType(flag)
		if err != nil {
			return "", errors.NewUserError(err,
				"Valid values: smokeapi, creamapi, koaloader, uplay_r1, uplay_r2, auto")
		}
		return t, nil
	}

	platform := mgr.DetectPlatform(gameDir)
	if platform == unlocker.PlatformUbisoft {
		// R1 and R2 games carry distinct loader DLLs; pick by signature.
		for _, u := range mgr.Compatible(platform) {
			if u.IsInstalled(gameDir) {
				return u.Type(), nil
			}
		}
		if fileutil.FileExists(filepath.Join(gameDir, "upc_r2_loader.dll")) {
			return unlocker.TypeUplayR2, nil
		}
		return unlocker.TypeUplayR1, nil
	}

	if proxy || cfg.ProxyMode {
		return unlocker.TypeKoaloader, nil
	}
	if cfg.PreferredUnlocker != "" {
		if t, err := unlocker.ParseType(cfg.PreferredUnlocker); err == nil {
			return t, nil
		}
		log.Warn("ignoring invalid preferred_unlocker in config",
			"value", cfg.PreferredUnlocker)
	}
	return unlocker.TypeSmokeAPI, nil
}
