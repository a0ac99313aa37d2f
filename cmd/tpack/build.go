package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tpack-go/tpack/internal/build"
	"github.com/tpack-go/tpack/internal/config"
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/resolver"
)

var outDir string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bundle the configured entry points once and write the generated modules to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		if len(opts.EntryPoints) == 0 {
			return fmt.Errorf("no entryPoints configured; pass --config or add entryPoints to tpack.config.yaml")
		}

		b, entries, err := newBuilder(opts)
		if err != nil {
			return err
		}

		result, err := b.Build(entries, opts.CompiledExtractRules())
		if err != nil {
			return err
		}

		return writeOutputs(result)
	},
}

func init() {
	buildCmd.Flags().StringVar(&outDir, "outdir", "dist", "directory generated bundles are written to")
	rootCmd.AddCommand(buildCmd)
}

// newBuilder wires a fresh resolver.Resolver and build.Builder for one
// invocation, reading each configured entry point's content from disk and
// registering it as an entry module (spec.md §6's "a list of entry file
// paths plus MIME type assignments").
func newBuilder(opts config.Options) (*build.Builder, []*module.Module, error) {
	hashSeed := module.NewHashSeed(uint64(os.Getpid()))
	res := resolver.New(opts.Resolver.Resolve(), hashSeed)
	processors := build.DefaultProcessors(opts, nil)
	sizeOf := func(m *module.Module) (int64, error) {
		content, err := m.Content()
		if err != nil {
			return 0, err
		}
		return int64(len(content)), nil
	}
	b := build.New(res, processors, sizeOf)

	entries := make([]*module.Module, 0, len(opts.EntryPoints))
	for _, ep := range opts.EntryPoints {
		abs, err := filepath.Abs(ep.Path)
		if err != nil {
			return nil, nil, err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, nil, fmt.Errorf("reading entry %q: %w", ep.Path, err)
		}
		m := module.New(abs, true, hashSeed)
		m.Type = ep.MIMEType
		if m.Type == "" {
			if guessed, ok := opts.MIMETypes[filepath.Ext(abs)]; ok {
				m.Type = guessed
			} else {
				m.Type = mime.TypeByExtension(filepath.Ext(abs))
			}
		}
		m.SetText(string(data))
		res.Put(m)
		entries = append(entries, m)
	}
	return b, entries, nil
}

func writeOutputs(result *build.Result) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, out := range result.Outputs() {
		if out.NoWrite {
			continue
		}
		dest := filepath.Join(outDir, filepath.Base(out.Path))
		if err := os.WriteFile(dest, []byte(out.Content), 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d bytes, sha1 %s)\n", dest, out.Size, out.SHA1)
		for _, log := range out.Logs {
			fmt.Printf("  %s: %s\n", log.Level, log.Message)
		}
	}
	return nil
}
