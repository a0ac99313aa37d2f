// Package config implements spec.md §2.3's Options surface: everything
// a build needs besides the source files themselves — entry points and
// MIME assignments, resolver knobs, per-renderer options, the constant
// folding tables, the source-map mode, and the common-bundle extraction
// rules.
//
// Grounded on the teacher's own internal/config/config.go: a flat
// Options struct holding one sub-struct per concern (JSXOptions,
// TSOptions, ...) plus enums like SourceMap and Loader. What's dropped
// from the teacher is anything downstream of its own AST/bundler
// internals (ModuleTypeData, MangleProps, TSConfig, Plugins) — spec.md's
// Non-goals put parsing and transpilation out of scope, so only the
// options this core's own renderers (internal/render/js, css, html) and
// internal/extract actually consume are kept.
package config

import (
	"github.com/tpack-go/tpack/internal/extract"
	"github.com/tpack-go/tpack/internal/render/css"
	"github.com/tpack-go/tpack/internal/render/html"
	"github.com/tpack-go/tpack/internal/render/js"
	"github.com/tpack-go/tpack/internal/resolver"
)

// SourceMapMode mirrors the teacher's config.SourceMap enum, trimmed to
// the modes spec.md's composite source-map step actually produces.
type SourceMapMode uint8

const (
	SourceMapNone SourceMapMode = iota
	SourceMapInline
	SourceMapLinkedWithComment
	SourceMapExternalWithoutComment
)

// EntryPoint names one root module and, optionally, the MIME type it
// should be loaded as when the extension-based guess
// (mime.TypeByExtension, see internal/bundler) isn't good enough.
type EntryPoint struct {
	Path     string `mapstructure:"path" yaml:"path" json:"path"`
	MIMEType string `mapstructure:"mimeType" yaml:"mimeType" json:"mimeType"`
}

// ResolverOptions configures internal/resolver's disk-backed Resolve,
// spec.md §4.6's "resolver configuration: extensions, module
// directories".
type ResolverOptions struct {
	// Extensions are tried in order, appended to a specifier that
	// doesn't resolve literally (e.g. "./button" -> "./button.js").
	Extensions []string `mapstructure:"extensions" yaml:"extensions" json:"extensions"`

	// ModuleDirectories are searched, walking up from the referrer's
	// directory, for a bare (non-relative, non-absolute) specifier —
	// e.g. "node_modules".
	ModuleDirectories []string `mapstructure:"moduleDirectories" yaml:"moduleDirectories" json:"moduleDirectories"`

	// ExternalList is a set of doublestar glob patterns for spec.md §3's
	// externalList dependencies. It is only carried through config
	// loading: Resolve does not read it, and no dependency is registered
	// from it.
	ExternalList []string `mapstructure:"externalList" yaml:"externalList" json:"externalList"`
}

// Resolve builds the internal/resolver.Resolve this configuration
// describes.
func (r ResolverOptions) Resolve() resolver.Resolve {
	return resolver.NewDiskResolveWithOptions(r.Extensions, r.ModuleDirectories)
}

// JSOptions is the serializable subset of internal/render/js.Options:
// GlobalDefines/GlobalTypeof are plain data, so they round-trip through
// JSON/YAML directly, unlike js.Options itself which this struct
// produces on demand via Render.
type JSOptions struct {
	GlobalDefines map[string]interface{} `mapstructure:"globalDefines" yaml:"globalDefines" json:"globalDefines"`
	GlobalTypeof  map[string]string      `mapstructure:"globalTypeof" yaml:"globalTypeof" json:"globalTypeof"`
}

// Render converts to internal/render/js.Options, the form the renderer
// itself consumes.
func (o JSOptions) Render() js.Options {
	return js.Options{
		GlobalDefines: o.GlobalDefines,
		GlobalTypeof:  o.GlobalTypeof,
	}
}

// CSSImportMode spells spec.md §4.4's "import ∈ {true, 'url', false}" as
// a string enum so it serializes cleanly through viper/mapstructure.
type CSSImportMode string

const (
	CSSImportDisabled CSSImportMode = "false"
	CSSImportStatic   CSSImportMode = "true"
	CSSImportURL      CSSImportMode = "url"
)

// CSSOptions is the serializable subset of internal/render/css.Options.
type CSSOptions struct {
	Import CSSImportMode `mapstructure:"import" yaml:"import" json:"import"`
	URL    bool           `mapstructure:"url" yaml:"url" json:"url"`
}

// Render converts to internal/render/css.Options. RuntimeURL is left
// nil: it's a runtime callback wired by whatever assembles the build
// (internal/build's caller), not data this package can express.
func (o CSSOptions) Render() css.Options {
	mode := css.ImportDisabled
	switch o.Import {
	case CSSImportStatic:
		mode = css.ImportStatic
	case CSSImportURL:
		mode = css.ImportURL
	}
	return css.Options{Import: mode, URL: o.URL}
}

// HTMLOptions is the serializable subset of internal/render/html.Options.
type HTMLOptions struct {
	Inline  bool `mapstructure:"inline" yaml:"inline" json:"inline"`
	Include bool `mapstructure:"include" yaml:"include" json:"include"`
}

// Render converts to internal/render/html.Options, using the package's
// default attribute action table. RuntimeURL/ResolveInline/HashSeed are
// runtime callbacks, wired by the build's caller, not this package.
func (o HTMLOptions) Render() html.Options {
	return html.Options{
		Table:   html.DefaultActionTable(),
		Inline:  o.Inline,
		Include: o.Include,
	}
}

// ExtractRule is the serializable form of internal/extract.Rule: a
// glob string stands in for the compiled Matcher func, since a function
// value can't round-trip through JSON/YAML.
type ExtractRule struct {
	MatcherGlob        string `mapstructure:"matcherGlob" yaml:"matcherGlob" json:"matcherGlob"`
	MinUseCount        int    `mapstructure:"minUseCount" yaml:"minUseCount" json:"minUseCount"`
	MinSize            int64  `mapstructure:"minSize" yaml:"minSize" json:"minSize"`
	MaxSize            int64  `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxInitialRequests int    `mapstructure:"maxInitialRequests" yaml:"maxInitialRequests" json:"maxInitialRequests"`
	MaxAsyncRequests   int    `mapstructure:"maxAsyncRequests" yaml:"maxAsyncRequests" json:"maxAsyncRequests"`
	OutPath            string `mapstructure:"outPath" yaml:"outPath" json:"outPath"`
	Global             bool   `mapstructure:"global" yaml:"global" json:"global"`
}

// Rule compiles r into an internal/extract.Rule, building the Matcher
// func from MatcherGlob via resolver.MatchExternalList's doublestar
// matching (a nil/empty glob matches every module).
func (r ExtractRule) Rule() extract.Rule {
	var matcher func(string) bool
	if r.MatcherGlob != "" {
		glob := r.MatcherGlob
		matcher = func(path string) bool {
			return resolver.MatchExternalList(path, []string{glob})
		}
	}
	return extract.Rule{
		Matcher:            matcher,
		MinUseCount:        r.MinUseCount,
		MinSize:            r.MinSize,
		MaxSize:            r.MaxSize,
		MaxInitialRequests: r.MaxInitialRequests,
		MaxAsyncRequests:   r.MaxAsyncRequests,
		OutPath:            r.OutPath,
		Global:             r.Global,
	}
}

// Options is spec.md §2.3's top-level configuration surface, the
// library entry point's single input.
type Options struct {
	EntryPoints []EntryPoint `mapstructure:"entryPoints" yaml:"entryPoints" json:"entryPoints"`

	// MIMETypes maps a file extension (with leading dot, e.g. ".mjs")
	// to the MIME type internal/bundler should treat it as, overriding
	// the mime.TypeByExtension default for extensions the standard
	// library doesn't know about.
	MIMETypes map[string]string `mapstructure:"mimeTypes" yaml:"mimeTypes" json:"mimeTypes"`

	Resolver ResolverOptions `mapstructure:"resolver" yaml:"resolver" json:"resolver"`

	JS   JSOptions   `mapstructure:"js" yaml:"js" json:"js"`
	CSS  CSSOptions  `mapstructure:"css" yaml:"css" json:"css"`
	HTML HTMLOptions `mapstructure:"html" yaml:"html" json:"html"`

	SourceMap SourceMapMode `mapstructure:"-" yaml:"-" json:"-"`

	ExtractRules []ExtractRule `mapstructure:"extractRules" yaml:"extractRules" json:"extractRules"`
}

// CompiledExtractRules compiles every configured ExtractRule into the form
// internal/extract.Extract consumes.
func (o Options) CompiledExtractRules() []extract.Rule {
	rules := make([]extract.Rule, len(o.ExtractRules))
	for i, r := range o.ExtractRules {
		rules[i] = r.Rule()
	}
	return rules
}

// Default returns the Options used when no config file is loaded: no
// entry points or extraction rules, resolver extensions .js/.json/.css/
// .html, CSS @import registered as static imports and url(...)
// references registered, HTML left un-inlined.
func Default() Options {
	return Options{
		MIMETypes: map[string]string{},
		Resolver: ResolverOptions{
			Extensions: []string{".js", ".json", ".css", ".html"},
		},
		CSS: CSSOptions{Import: CSSImportStatic, URL: true},
	}
}
