package commands

import (
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/settings"
	"github.com/Midrags/SMD/internal/unlocker"
)

var (
	uninstallAppID    int
	uninstallUnlocker string
)

func init() {
	uninstallCmd.Flags().IntVar(&uninstallAppID, "app-id", 0,
		"application id of the game (required)")
	uninstallCmd.Flags().StringVarP(&uninstallUnlocker, "unlocker", "u", "auto",
		"technique to remove, or auto to use the recorded one")
	uninstallCmd.MarkFlagRequired("app-id")
	rootCmd.AddCommand(uninstallCmd)
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <game-dir>",
	Short: "Remove a DLC unlocker and restore the original binaries",
	Long: `Remove an installed DLC unlocking technique from a game installation,
restoring the backed-up original binaries and deleting the technique's
configuration artifacts.

With --unlocker auto the technique recorded for the app id is used; if
none is recorded, every technique reporting itself installed is removed.`,
	Example: `  smd uninstall ~/Games/MyGame --app-id 123
  smd uninstall ~/Games/MyGame --app-id 123 --unlocker koaloader`,
	Args: cobra.ExactArgs(1),
	RunE: runUninstall,
}

func runUninstall(_ *cobra.Command, args []string) error {
	gameDir, err := filepath.Abs(args[0])
	if err != nil {
		return errors.NewUserError(errors.Wrap(err, "resolving game directory"), "")
	}

	mgr := unlocker.NewManager(log, settings.Default())

	var targets []unlocker.Type
	if uninstallUnlocker != "auto" {
		t, err := unlocker.ParseType(uninstallUnlocker)
		if err != nil {
			return errors.NewUserError(err,
				"Valid values: smokeapi, creamapi, koaloader, uplay_r1, uplay_r2, auto")
		}
		targets = []unlocker.Type{t}
	} else if t, ok := mgr.ActiveUnlocker(uninstallAppID); ok {
		targets = []unlocker.Type{t}
	} else {
		for _, u := range mgr.All() {
			if u.IsInstalled(gameDir) {
				targets = append(targets, u.Type())
			}
		}
		if len(targets) == 0 {
			color.New(color.Faint).Println("No unlocker installation found.")
			return nil
		}
	}

	ok := true
	for _, t := range targets {
		if mgr.Uninstall(gameDir, t, uninstallAppID) {
			color.New(color.FgGreen).Printf("Removed %s\n", t)
		} else {
			ok = false
		}
	}
	if !ok {
		return errors.NewSystemError(
			errors.New("uninstall did not complete cleanly"),
			errors.SuggestElevate)
	}
	return nil
}
