package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tpack-go/tpack/internal/config"
)

var initOutPath string

// initCmd scaffolds a starter tpack.config.yaml, the counterpart to
// loadOptions' read path: config.DumpYAML renders a fresh config.Default()
// straight to YAML via gopkg.in/yaml.v3, rather than routing a
// not-yet-on-disk value through viper, which only reads existing files.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter tpack.config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(initOutPath); err == nil {
			return fmt.Errorf("%s already exists", initOutPath)
		}
		out, err := config.DumpYAML(config.Default())
		if err != nil {
			return err
		}
		if err := os.WriteFile(initOutPath, out, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", initOutPath)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initOutPath, "out", "tpack.config.yaml", "path to write the starter config to")
	rootCmd.AddCommand(initCmd)
}
