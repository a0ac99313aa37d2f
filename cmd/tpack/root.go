package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tpack-go/tpack/internal/config"
)

// rootCmd is the base command, grounded on bennypowers-cem's cmd/root.go
// (cobra root + viper config-file overlay bound via PersistentFlags,
// trimmed to this CLI's own two flags instead of that tool's project-dir
// resolution logic, which has no analogue here).
var rootCmd = &cobra.Command{
	Use:   "tpack",
	Short: "Bundle JavaScript, CSS, and HTML modules into request-efficient bundles",
	Long: `tpack links a set of entry modules into a dependency graph,
extracts shared code into common bundles under request-count and size
constraints, and rewrites each module's text while synthesizing a
composite source map back to the original inputs.`,
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (JSON or YAML; default: tpack.config.yaml in the current directory)")
	rootCmd.PersistentFlags().String("sourcemap", "", "source-map mode: none, inline, linked, external")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("sourcemap", rootCmd.PersistentFlags().Lookup("sourcemap"))
}

// loadOptions reads config.Options from the --config file if given, else
// from tpack.config.yaml in the current directory if that file exists,
// overlaying the --sourcemap flag on top, the same config-file-then-flag
// layering bennypowers-cem's initConfig/viper.BindPFlag combination uses.
func loadOptions() (config.Options, error) {
	cfgFile := viper.GetString("config")
	if cfgFile == "" {
		if _, err := os.Stat("tpack.config.yaml"); err == nil {
			cfgFile = "tpack.config.yaml"
		}
	}
	opts := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return config.Options{}, fmt.Errorf("loading config %q: %w", cfgFile, err)
		}
		opts = loaded
	}
	if mode := viper.GetString("sourcemap"); mode != "" {
		opts.SourceMap = config.ParseSourceMapMode(mode)
	}
	return opts, nil
}
