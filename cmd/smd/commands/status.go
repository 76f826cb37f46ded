package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/settings"
	"github.com/Midrags/SMD/internal/steamapi"
	"github.com/Midrags/SMD/internal/unlocker"
	"github.com/Midrags/SMD/internal/validate"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(detectCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <game-dir>",
	Short: "Show detected platform, architecture, and installed techniques",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, args []string) error {
	gameDir, err := filepath.Abs(args[0])
	if err != nil {
		return errors.NewUserError(errors.Wrap(err, "resolving game directory"), "")
	}
	if ok, reason := validate.Directory(gameDir); !ok {
		return errors.NewUserError(errors.Mark(errors.New(reason), errors.ErrInvalidDirectory), "")
	}

	mgr := unlocker.NewManager(log, settings.Default())
	platform := mgr.DetectPlatform(gameDir)

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Println(gameDir)
	fmt.Printf("  platform:     %s\n", platform)
	if platform == unlocker.PlatformSteam {
		arch := steamapi.DetectArchitecture(gameDir)
		if arch == "" {
			arch = "unknown"
		}
		fmt.Printf("  architecture: %s\n", arch)
		fmt.Printf("  locations:    %d\n", len(steamapi.FindAllLocations(gameDir)))
	}

	fmt.Println("  techniques:")
	for _, u := range mgr.Compatible(platform) {
		if u.IsInstalled(gameDir) {
			color.New(color.FgGreen).Printf("    %-12s installed\n", u.Type())
		} else {
			faint.Printf("    %-12s not installed\n", u.Type())
		}
	}
	return nil
}

var detectCmd = &cobra.Command{
	Use:   "detect <game-dir>",
	Short: "Print the detected distribution platform for a game directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		gameDir, err := filepath.Abs(args[0])
		if err != nil {
			return errors.NewUserError(errors.Wrap(err, "resolving game directory"), "")
		}
		if ok, reason := validate.Directory(gameDir); !ok {
			return errors.NewUserError(errors.Mark(errors.New(reason), errors.ErrInvalidDirectory), "")
		}
		mgr := unlocker.NewManager(log, settings.Default())
		fmt.Println(mgr.DetectPlatform(gameDir))
		return nil
	},
}
