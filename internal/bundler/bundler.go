// Package bundler implements spec.md §4.7's bundle assembly: the loader
// prelude plus one tpack.define per module in a graph.Bundle, closed by
// a tpack.require of the entry module.
package bundler

import (
	"mime"
	"strings"

	"github.com/tpack-go/tpack/internal/graph"
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/pathutil"
	"github.com/tpack-go/tpack/internal/sourcemap"
	"github.com/tpack-go/tpack/internal/textdoc"
)

// Emit renders b into one JavaScript program: the prelude, a
// tpack.define per module (dependencies before dependents, per
// graph.Build's post-order) and, for a bundle built around an entry
// module (not a common bundle hoisted by internal/extract, which has
// none), a closing tpack.require of that entry. Any reachable module
// with a source map contributes a resolved mapping per line, so the
// returned Builder — built under b.ID, stable for both entry and common
// bundles — resolves an emitted line back to wherever it originated.
func Emit(b *graph.Bundle) (string, *sourcemap.Builder, error) {
	w := textdoc.NewWriter(b.ID)

	w.WriteString(preludeScript)

	for _, m := range b.Modules {
		if err := emitModule(w, m); err != nil {
			return "", nil, err
		}
	}

	if b.EntryModule != nil {
		entryID := pathutil.QuoteJS(b.EntryModule.Path.String())
		w.WriteString("tpack.require(" + entryID + ");\n")
	}
	return w.String(), w.SourceMap, nil
}

func emitModule(w *textdoc.Writer, m *module.Module) error {
	id := pathutil.QuoteJS(m.Path.String())
	w.WriteString("tpack.define(" + id + ", function(require, exports, module) {\n")

	switch {
	case m.Type == "text/javascript":
		content, err := m.Content()
		if err != nil {
			return err
		}
		if err := emitJSBody(w, m, content); err != nil {
			return err
		}

	case m.Type == "text/css":
		content, err := m.Content()
		if err != nil {
			return err
		}
		w.WriteString("module.exports = tpack.style(" + pathutil.QuoteJS(content) + ");\n")

	case m.Type == "application/json":
		content, err := m.Content()
		if err != nil {
			return err
		}
		w.WriteString("module.exports = " + content + ";\n")

	case strings.HasPrefix(m.Type, "text/"):
		content, err := m.Content()
		if err != nil {
			return err
		}
		w.WriteString("module.exports = " + pathutil.QuoteJS(content) + ";\n")

	default:
		buf, err := m.Buffer()
		if err != nil {
			return err
		}
		mimeType := m.Type
		if mimeType == "" {
			mimeType = mime.TypeByExtension(m.Path.Ext)
		}
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.WriteString("module.exports = " + pathutil.QuoteJS(EncodeAsShortestDataURL(mimeType, buf)) + ";\n")
	}

	w.WriteString("});\n")
	return nil
}

// emitJSBody writes m's rewritten content line by line, forwarding a
// source mapping per line so a downstream tool can resolve a bundled
// position back to whichever original module emitted it (spec.md §4.7's
// closing paragraph).
func emitJSBody(w *textdoc.Writer, m *module.Module, content string) error {
	smd, err := m.SourceMapData()
	if err != nil {
		return err
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		sourcePath := m.OriginalPath
		origLine, origColumn := int32(i), int32(0)
		srcContent := content
		if smd != nil {
			if pos := smd.GetSource(int32(i), 0, true, false); pos != nil {
				sourcePath = pos.SourcePath
				origLine = pos.Line
				origColumn = pos.Column
				srcContent = ""
			}
		}
		w.Map(sourcePath, srcContent, origLine, origColumn)
		w.WriteString(line)
		if i != len(lines)-1 {
			w.WriteString("\n")
		}
	}
	return nil
}
