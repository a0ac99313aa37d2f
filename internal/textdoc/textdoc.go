// Package textdoc implements spec.md §4.2's TextDocument/TextWriter: an
// append-only edit log over an immutable source string, with replacements
// optionally expressed as deferred closures resolved only when the
// document is finally written out.
//
// No direct teacher analogue survives in the copied tree — esbuild builds
// its output by walking an AST and printing nodes, never by patching an
// original source string. The shape here (a sorted, non-overlapping edit
// list; a writer that alternates unchanged slices and resolved
// replacements while forwarding line/column mappings) is spec-native,
// grounded in spec.md §4.2 and exercised by the CSS/HTML renderers that
// never get their own AST (spec.md §4.4, §4.5).
package textdoc

import (
	"fmt"
	"sort"

	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/pathutil"
	"github.com/tpack-go/tpack/internal/sourcemap"
)

// OverlappingEdit is the fatal programming error named in spec.md §7: two
// edits were registered whose [start, end) ranges intersect.
type OverlappingEdit struct {
	A, B edit
}

func (e *OverlappingEdit) Error() string {
	return fmt.Sprintf("textdoc: overlapping edits [%d,%d) and [%d,%d)", e.A.Start, e.A.End, e.B.Start, e.B.End)
}

// Resolver is called to materialize a deferred replacement at write time.
// It receives the owning module and the Document performing the write, so
// a closure can reference state only known after resolution (e.g. a
// dependency's resolved module id).
type Resolver func(m *module.Module, doc *Document) (string, error)

type replacementKind uint8

const (
	literalReplacement replacementKind = iota
	deferredReplacement
)

type edit struct {
	Start, End int32
	Kind       replacementKind
	Literal    string
	Deferred   Resolver
}

// Document holds an immutable original content string plus an ordered,
// non-overlapping edit log (spec.md §4.2).
type Document struct {
	Module  *module.Module
	Content string
	edits   []edit
}

// NewDocument creates a Document bound to an owning module's original
// content, used to remap any mappings emitted during Write back to the
// module's source (spec.md §4.2 "forward original-line/column mappings").
func NewDocument(m *module.Module, content string) *Document {
	return &Document{Module: m, Content: content}
}

func (d *Document) insertEdit(e edit) error {
	for _, existing := range d.edits {
		if e.Start < existing.End && existing.Start < e.End {
			return &OverlappingEdit{A: existing, B: e}
		}
	}
	d.edits = append(d.edits, e)
	return nil
}

// Remove deletes the byte range [a, b).
func (d *Document) Remove(a, b int32) error {
	return d.insertEdit(edit{Start: a, End: b, Kind: literalReplacement, Literal: ""})
}

// Insert splices s in at position at, without removing any original
// content (a zero-length replacement).
func (d *Document) Insert(at int32, s string) error {
	return d.insertEdit(edit{Start: at, End: at, Kind: literalReplacement, Literal: s})
}

// Replace substitutes the byte range [a, b) with s.
func (d *Document) Replace(a, b int32, s string) error {
	return d.insertEdit(edit{Start: a, End: b, Kind: literalReplacement, Literal: s})
}

// ReplaceDeferred substitutes [a, b) with a closure resolved only when
// Write runs — spec.md §4.3's "the argument's range is later replaced by
// the resolved module's id (deferred closure)".
func (d *Document) ReplaceDeferred(a, b int32, resolve Resolver) error {
	return d.insertEdit(edit{Start: a, End: b, Kind: deferredReplacement, Deferred: resolve})
}

// Append inserts s at the end of the document.
func (d *Document) Append(s string) error {
	return d.Insert(int32(len(d.Content)), s)
}

// Writer accumulates the final text produced by one or more Document
// writes and, optionally, a SourceMap builder tracking where each emitted
// byte originated (spec.md §4.2 step 2).
type Writer struct {
	buf  []byte
	line int32
	col  int32

	SourceMap *sourcemap.Builder
}

// NewWriter creates a Writer that, if file is non-empty, also builds a
// source map under that generated file name.
func NewWriter(file string) *Writer {
	w := &Writer{}
	if file != "" {
		w.SourceMap = sourcemap.NewBuilder(file)
	}
	return w
}

func (w *Writer) advance(s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			w.line++
			w.col = 0
		} else {
			w.col++
		}
	}
}

// WriteString appends raw text to the writer's output buffer, advancing
// its internal line/column cursor. It does not by itself add a mapping —
// callers that care about source fidelity call Map immediately after (or
// before) writing the text the mapping describes.
func (w *Writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
	w.advance(s)
}

// Map records a mapping from the writer's current position to a source
// position, creating a source-map source entry on first use.
func (w *Writer) Map(sourcePath string, sourceContent string, origLine, origColumn int32) {
	if w.SourceMap == nil {
		return
	}
	idx := w.SourceMap.AddSource(sourcePath, sourceContent)
	_ = idx
	w.SourceMap.AddMapping(w.line, w.col, sourcePath, origLine, origColumn, "")
}

// String returns the accumulated output.
func (w *Writer) String() string {
	return string(w.buf)
}

// Write materializes d's edit log against a Writer: sorts edits by start,
// resolves deferred closures, and emits alternating unchanged-source
// slices and replacements, forwarding a mapping per original line so any
// position reported by a downstream compiler maps back to a source line
// (spec.md §4.2).
func (d *Document) Write(w *Writer) error {
	sorted := make([]edit, len(d.edits))
	copy(sorted, d.edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	lm := pathutil.NewLineMap(d.Content)
	sourceContent := d.Content
	sourcePath := ""
	if d.Module != nil {
		sourcePath = d.Module.OriginalPath
	}

	var cursor int32
	emitUnchanged := func(from, to int32) {
		for from < to {
			next := from
			for next < to && d.Content[next] != '\n' {
				next++
			}
			if next < to {
				next++
			}
			line, col := lm.LineColumn(from)
			w.Map(sourcePath, sourceContent, line, col)
			w.WriteString(d.Content[from:next])
			from = next
		}
	}

	for _, e := range sorted {
		emitUnchanged(cursor, e.Start)
		switch e.Kind {
		case literalReplacement:
			w.WriteString(e.Literal)
		case deferredReplacement:
			text, err := e.Deferred(d.Module, d)
			if err != nil {
				return err
			}
			w.WriteString(text)
		}
		cursor = e.End
	}
	emitUnchanged(cursor, int32(len(d.Content)))
	return nil
}
