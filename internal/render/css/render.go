// Package css implements spec.md §4.4's CSS module renderer: a scan over
// the source that finds @import url(...) statements and bare url(...)
// references, registering dependencies and deferred rewrites for each.
//
// esbuild's own internal/css_lexer/internal/css_parser build a full CSS
// grammar (selectors, at-rules, declarations) that spec.md's Non-goals
// exclude ("the core consumes an externally supplied parser" — and
// unlike JS, no external CSS AST is assumed either, so this renderer
// tokenizes for itself). Rather than hand-roll a second lexer, this uses
// github.com/gorilla/css's scanner, the same CSS tokenizer the retrieved
// pack already depends on (transitively, via bennypowers-cem's
// go.sum) — it gives line/column-free comments, strings, and url(...)
// tokens exactly at the granularity spec.md §4.4 describes scanning for.
package css

import (
	"strings"

	"github.com/gorilla/css/scanner"

	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/pathutil"
	"github.com/tpack-go/tpack/internal/textdoc"
)

// ImportMode is spec.md §4.4's "import ∈ {true, 'url', false}" option,
// spelled as a Go enum instead of a tri-state any.
type ImportMode uint8

const (
	ImportDisabled ImportMode = iota
	ImportStatic              // true: register staticImport
	ImportURL                 // "url": register reference
)

// Options configures the CSS renderer exactly per spec.md §4.4: "import
// ∈ {true, 'url', false}, url ∈ {true, false}".
type Options struct {
	Import ImportMode
	URL    bool

	// RuntimeURL resolves a registered reference dependency's target
	// module to the URL (or data URI, when Inline is requested) spliced
	// into the rewritten url(...) token.
	RuntimeURL func(dep *module.Dependency) (string, error)
}

// URLResolver produces the runtime-url rewrite text for a single
// registered Dependency, deferred until the dependency is resolved.
type URLResolver func(dep *module.Dependency) (string, error)

// Render scans content (doc's module's current text) for @import
// url(...) and url(...) tokens, registering dependencies on doc.Module
// and queuing deferred rewrites on doc.
func Render(doc *textdoc.Document, content string, opts Options) error {
	s := scanner.New(content)
	var pos int32
	var pendingImport bool
	var importStart int32

	// Once an @import's URL/string argument has been consumed, the
	// statement's own source range isn't known until its terminating ";"
	// is found — elision (spec.md §4.4/S4) removes through there.
	var awaitingSemicolon bool
	var removeImportRange bool

	for {
		tok := s.Next()
		if tok == nil || tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			break
		}
		start := pos
		end := pos + int32(len(tok.Value))
		pos = end

		if awaitingSemicolon {
			switch tok.Type {
			case scanner.TokenS, scanner.TokenComment:
				// keep waiting
			case scanner.TokenChar:
				if tok.Value == ";" {
					if removeImportRange {
						if err := doc.Remove(importStart, end); err != nil {
							return err
						}
					}
				}
				awaitingSemicolon = false
				removeImportRange = false
			default:
				awaitingSemicolon = false
				removeImportRange = false
			}
			continue
		}

		switch tok.Type {
		case scanner.TokenAtKeyword:
			if strings.EqualFold(tok.Value, "@import") {
				pendingImport = true
				importStart = start
				continue
			}
			pendingImport = false

		case scanner.TokenURI:
			inner, innerStart, innerEnd := unwrapURI(tok.Value, start)
			quote := quoteCharOf(tok.Value)
			if pendingImport {
				removeImportRange = registerImport(doc, opts, inner)
				awaitingSemicolon = true
				pendingImport = false
			} else if opts.URL {
				if err := registerURLRef(doc, opts, inner, innerStart, innerEnd, quote); err != nil {
					return err
				}
			}

		case scanner.TokenString:
			if pendingImport {
				inner := unwrapString(tok.Value)
				removeImportRange = registerImport(doc, opts, inner)
				awaitingSemicolon = true
				pendingImport = false
			}

		case scanner.TokenS, scanner.TokenComment:
			// whitespace/comments between @import and its argument don't
			// cancel a pending import.

		default:
			pendingImport = false
		}
	}
	return nil
}

// registerImport records the dependency for an @import target and
// reports whether its statement range should later be elided (spec.md
// §4.4/S4: only when the import mode is "static").
func registerImport(doc *textdoc.Document, opts Options, specifier string) bool {
	if opts.Import == ImportDisabled || specifier == "" {
		return false
	}
	depType := module.Reference
	if opts.Import == ImportStatic {
		depType = module.StaticImport
	}
	dep := module.NewDependency(specifier, depType, 0, 0)
	dep.HasRange = false
	dep.Detail["mode"] = importModeString(opts.Import)
	doc.Module.AddDependency(dep)
	return opts.Import == ImportStatic
}

func registerURLRef(doc *textdoc.Document, opts Options, specifier string, innerStart, innerEnd int32, quote byte) error {
	if specifier == "" {
		return nil
	}
	dep := module.NewDependency(specifier, module.Reference, innerStart, innerEnd)
	doc.Module.AddDependency(dep)

	return doc.ReplaceDeferred(innerStart, innerEnd, func(m *module.Module, d *textdoc.Document) (string, error) {
		if opts.RuntimeURL == nil {
			return pathutil.QuoteCSSURL(specifier, quote), nil
		}
		resolved, err := opts.RuntimeURL(dep)
		if err != nil {
			return "", err
		}
		return pathutil.QuoteCSSURL(resolved, quote), nil
	})
}

func importModeString(m ImportMode) string {
	switch m {
	case ImportStatic:
		return "true"
	case ImportURL:
		return "url"
	default:
		return "false"
	}
}

// unwrapURI splits a scanner.TokenURI value ("url(...)") into its inner
// contents and that content's absolute byte range, stripping a
// surrounding quote pair and leading/trailing whitespace if present.
func unwrapURI(raw string, tokenStart int32) (inner string, innerStart, innerEnd int32) {
	open := strings.IndexByte(raw, '(')
	closeIdx := strings.LastIndexByte(raw, ')')
	if open < 0 || closeIdx < 0 || closeIdx <= open {
		return "", tokenStart, tokenStart
	}
	body := raw[open+1 : closeIdx]
	bodyStart := tokenStart + int32(open) + 1

	trimLeft := len(body) - len(strings.TrimLeft(body, " \t\n\r"))
	trimmed := strings.TrimRight(strings.TrimLeft(body, " \t\n\r"), " \t\n\r")
	start := bodyStart + int32(trimLeft)
	end := start + int32(len(trimmed))

	if len(trimmed) >= 2 && (trimmed[0] == '"' || trimmed[0] == '\'') {
		return pathutil.DecodeCSSString(trimmed), start + 1, end - 1
	}
	return trimmed, start, end
}

func unwrapString(raw string) string {
	return pathutil.DecodeCSSString(raw)
}

func quoteCharOf(raw string) byte {
	if i := strings.IndexAny(raw, `"'`); i >= 0 {
		return raw[i]
	}
	return '"'
}
