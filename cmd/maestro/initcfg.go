package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file with the default settings.

By default the file is written to ~/.maestro/config.yaml. Pass --config
to choose a different location. Existing files are never overwritten.

Examples:
  maestro init                          # write ~/.maestro/config.yaml
  maestro init --config ./config.yaml   # write to the current directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".maestro", "config.yaml")
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}
