package config

import (
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads Options from a JSON or YAML file at path (format inferred
// from its extension), the config-file overlay spec.md §2.3 describes,
// grounded on the cobra+viper combination bennypowers-cem's cmd/root.go
// uses for its own ".config/cem.yaml". Unlike that CLI, this package
// builds its own *viper.Viper instance per call rather than mutating
// viper's process-global singleton, so a library caller can load more
// than one configuration without state bleeding between them.
func Load(path string) (Options, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Options{}, err
	}
	return FromViper(v)
}

// FromViper decodes an already-populated viper instance into Options,
// letting a CLI layer (cmd/tpack) bind flags and environment variables
// on top of a config file before handing the merged view to this
// package — the same layering bennypowers-cem's cmd package does with
// viper.BindPFlag plus viper.AutomaticEnv ahead of viper.Unmarshal.
func FromViper(v *viper.Viper) (Options, error) {
	opts := Default()
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// DumpYAML renders opts as a YAML document, the `tpack init` scaffold
// format: unlike Load/FromViper (which go through viper so a config file
// can overlay flags and environment variables), this writes the other
// direction — a fresh Options value straight to the on-disk config
// format — so it goes through gopkg.in/yaml.v3 directly rather than
// viper, which has no "serialize a struct back out" operation of its own.
func DumpYAML(opts Options) ([]byte, error) {
	return yaml.Marshal(opts)
}

// LoadYAMLFile reads an Options value directly from a YAML file without
// viper's config-file/flag/env layering, for callers (library embedders,
// tests) that just want "parse this YAML" rather than the CLI's merged
// view.
func LoadYAMLFile(data []byte) (Options, error) {
	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// ParseSourceMapMode maps the CLI/config spelling of a source-map mode
// ("none", "inline", "linked", "external") to a SourceMapMode, mirroring
// esbuild's own "--sourcemap"/"--sourcemap=inline" flag vocabulary. An
// unrecognized or empty value returns SourceMapNone.
func ParseSourceMapMode(s string) SourceMapMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline":
		return SourceMapInline
	case "linked":
		return SourceMapLinkedWithComment
	case "external":
		return SourceMapExternalWithoutComment
	default:
		return SourceMapNone
	}
}
