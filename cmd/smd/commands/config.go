package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Midrags/SMD/internal/config"
	"github.com/Midrags/SMD/internal/errors"
	"github.com/Midrags/SMD/internal/paths"
)

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage smd configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		path, err := config.WriteDefault(paths.ConfigDir())
		if err != nil {
			return errors.NewUserError(err, "")
		}
		fmt.Println("Wrote", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config directory",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Println(paths.ConfigDir())
		return nil
	},
}
