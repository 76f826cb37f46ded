// Package commands implements the CLI commands for smd.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Midrags/SMD/internal/config"
	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/logging"
)

// version is set at build time via ldflags.
const version = "0.1.0"

// Persistent flag values.
var (
	verbosity int
	quiet     bool
	logFormat string
)

// cfg holds the loaded application configuration.
var cfg *config.Config

// log is the process-wide logger, configured in initRoot.
var log *slog.Logger

func init() {
	cobra.OnInitialize(initRoot)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("smd version {{.Version}}\n")

	// Silence cobra's own reporting; Execute controls error output.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initRoot() {
	config.Init()

	var err error
	cfg, err = config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not load config:", err)
		cfg = &config.Config{}
	}

	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}

	log = logging.New(logging.Config{
		Level:  level,
		Format: logging.Format(logFormat),
	})
}

var rootCmd = &cobra.Command{
	Use:   "smd",
	Short: "Manage DLC unlocker installations in local game directories",
	Long: `smd installs, detects, and removes binary-replacement DLC unlocking
techniques in local game installations. Originals are preserved as
backup files beside the replaced binaries and restored on uninstall.

Five techniques are supported: SmokeAPI and CreamAPI (Steam, direct
replacement), Koaloader (Steam, proxy loader), and the Uplay R1/R2
unlockers (Ubisoft Connect). Replacement binaries are read from a local
payload directory; fetching them is the job of a separate downloader.`,
	Example: `  # Detect platform and installed techniques
  smd status ~/Games/MyGame

  # Install SmokeAPI with two DLC ids
  smd install ~/Games/MyGame --app-id 123 --dlc 10,11

  # Remove whatever technique is recorded for the game
  smd uninstall ~/Games/MyGame --app-id 123`,
}

// Execute runs the root command and maps errors to exit codes.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		printError(err)

		var exitErr *errors.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return errors.ExitUser
	}
	return errors.ExitSuccess
}

func printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, err)

	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) && exitErr.Suggestion != "" {
		fmt.Fprintln(os.Stderr, "Suggestion:", exitErr.Suggestion)
	}
}
