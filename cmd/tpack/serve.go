package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tpack-go/tpack/internal/devserver"
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/watch"
)

var serveAddr string

// serveCmd is the thin out-of-scope dev-server wiring SPEC_FULL.md §5/§6
// describes: it does not serve bundle output over HTTP (still out of
// scope per spec.md §1 — only the WebSocket reload channel is here), it
// runs one initial build, watches every entry's original path with
// internal/watch, and rebuilds + broadcasts on change via
// internal/devserver.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Rebuild on change and broadcast reload notifications over WebSocket",
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

		notifier := devserver.New()
		rebuild := func() {
			result, err := b.Build(entries, opts.CompiledExtractRules())
			if err != nil {
				notifier.NotifyError(err)
				return
			}
			if err := writeOutputs(result); err != nil {
				notifier.NotifyError(err)
				return
			}
			notifier.Notify(result.Outputs())
		}
		rebuild()

		w, err := watch.New(b)
		if err != nil {
			return err
		}
		defer w.Close()
		w.OnReset = func(*module.Module) { rebuild() }

		for _, ep := range opts.EntryPoints {
			abs, err := filepath.Abs(ep.Path)
			if err != nil {
				return err
			}
			if err := w.Add(abs); err != nil {
				return err
			}
		}
		w.Start()

		http.HandleFunc("/__tpack/reload", func(rw http.ResponseWriter, r *http.Request) {
			if err := notifier.HandleConnection(rw, r); err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
			}
		})
		fmt.Printf("tpack serve listening on %s (WebSocket reload at /__tpack/reload)\n", serveAddr)
		return http.ListenAndServe(serveAddr, nil)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:7357", "address the reload WebSocket listens on")
	rootCmd.AddCommand(serveCmd)
}
