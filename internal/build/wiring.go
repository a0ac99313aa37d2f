package build

import (
	"mime"

	"github.com/tpack-go/tpack/internal/bundler"
	"github.com/tpack-go/tpack/internal/config"
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/render/css"
	"github.com/tpack-go/tpack/internal/render/html"
	"github.com/tpack-go/tpack/internal/render/js"
	"github.com/tpack-go/tpack/internal/textdoc"
)

// RuntimeURL resolves a Dependency to the text a renderer should splice
// into its url(...)/src= rewrite: the resolved module's output path for
// an ordinary reference, or a data URI (spec.md §4.7's "anything else")
// when the dependency requested inlining. Shared by internal/render/css
// and internal/render/html's Options.RuntimeURL callback so both
// renderers resolve references identically.
func RuntimeURL(dep *module.Dependency) (string, error) {
	if dep.Module == nil {
		return dep.Path, nil
	}
	if dep.Inline {
		buf, err := dep.Module.Buffer()
		if err != nil {
			return "", err
		}
		mimeType := dep.Module.Type
		if mimeType == "" {
			mimeType = mime.TypeByExtension(dep.Module.Path.Ext)
		}
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		return bundler.EncodeAsShortestDataURL(mimeType, buf), nil
	}
	return dep.Module.Path.String(), nil
}

// ResolveInline returns a resolved scriptURL/styleURL dependency's target
// content, used by internal/render/html's Options.ResolveInline only when
// Inline is requested and the dependency resolved.
func ResolveInline(dep *module.Dependency) (string, bool, error) {
	if dep.Module == nil {
		return "", false, nil
	}
	content, err := dep.Module.Content()
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

// JSASTProvider parses a JS module's content into the externally
// supplied AST internal/render/js.Render consumes (spec.md §4.3: "the
// core consumes an externally supplied parser"). A caller embedding this
// module links in a real JS parser (e.g. via cgo or a subprocess) and
// supplies it here; cmd/tpack ships with none wired (CLI glue is out of
// scope per spec.md §1), so DefaultProcessors' JS stage is a no-op
// pass-through when astProvider is nil — the module reaches StateLoaded
// with no registered dependencies rather than failing the build.
type JSASTProvider func(path, content string) (*js.Node, error)

// DefaultProcessors wires internal/render/js, css, and html into the
// three Processor stages a Builder needs, using opts (spec.md §2.3's
// config.Options) for the per-renderer knobs and RuntimeURL/ResolveInline
// above for the runtime callbacks config.Options.Render leaves nil.
func DefaultProcessors(opts config.Options, jsAST JSASTProvider) []Processor {
	cssOpts := opts.CSS.Render()
	cssOpts.RuntimeURL = RuntimeURL

	htmlOpts := opts.HTML.Render()
	htmlOpts.RuntimeURL = RuntimeURL
	htmlOpts.ResolveInline = ResolveInline

	jsOpts := opts.JS.Render()

	return []Processor{
		{
			Name:  "css",
			Match: func(mimeType string) bool { return mimeType == "text/css" },
			Run: func(m *module.Module, doc *textdoc.Document) error {
				return css.Render(doc, doc.Content, cssOpts)
			},
		},
		{
			Name:  "html",
			Match: func(mimeType string) bool { return mimeType == "text/html" },
			Run: func(m *module.Module, doc *textdoc.Document) error {
				htmlOpts.HashSeed = m.HashSeedFunc()
				return html.Render(doc, doc.Content, htmlOpts)
			},
		},
		{
			Name:  "js",
			Match: func(mimeType string) bool { return mimeType == "text/javascript" || mimeType == "application/javascript" },
			Run: func(m *module.Module, doc *textdoc.Document) error {
				if jsAST == nil {
					return nil
				}
				root, err := jsAST(m.OriginalPath, doc.Content)
				if err != nil {
					return err
				}
				return js.Render(doc, root, jsOpts, nil)
			},
		},
	}
}
