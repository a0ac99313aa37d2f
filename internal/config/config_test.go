package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/render/css"
)

func TestLoadJSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tpack.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"entryPoints": [{"path": "./src/main.js"}],
		"resolver": {"extensions": [".ts", ".js"], "moduleDirectories": ["node_modules"]},
		"js": {"globalDefines": {"process.env.NODE_ENV": "production"}},
		"css": {"import": "url", "url": true},
		"extractRules": [{"minUseCount": 2, "outPath": "common.js"}]
	}`), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)

	require.Len(t, opts.EntryPoints, 1)
	assert.Equal(t, "./src/main.js", opts.EntryPoints[0].Path)
	assert.Equal(t, []string{".ts", ".js"}, opts.Resolver.Extensions)
	assert.Equal(t, []string{"node_modules"}, opts.Resolver.ModuleDirectories)
	assert.Equal(t, "production", opts.JS.GlobalDefines["process.env.NODE_ENV"])
	assert.Equal(t, CSSImportURL, opts.CSS.Import)

	require.Len(t, opts.ExtractRules, 1)
	assert.Equal(t, "common.js", opts.ExtractRules[0].OutPath)
}

func TestLoadYAMLConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tpack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entryPoints:\n  - path: ./src/main.js\ncss:\n  import: \"true\"\n  url: false\n"), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	require.Len(t, opts.EntryPoints, 1)
	assert.Equal(t, CSSImportStatic, opts.CSS.Import)
	assert.False(t, opts.CSS.URL)
}

func TestCSSOptionsRenderMapsImportMode(t *testing.T) {
	o := CSSOptions{Import: CSSImportURL, URL: true}
	rendered := o.Render()
	assert.Equal(t, css.ImportURL, rendered.Import)
	assert.True(t, rendered.URL)
}

func TestExtractRuleCompilesGlobMatcher(t *testing.T) {
	r := ExtractRule{MatcherGlob: "vendor/**", MinUseCount: 2, OutPath: "common.js"}
	rule := r.Rule()
	require.NotNil(t, rule.Matcher)
	assert.True(t, rule.Matcher("vendor/jquery.js"))
	assert.False(t, rule.Matcher("src/a.js"))
	assert.Equal(t, 2, rule.MinUseCount)
}

func TestExtractRuleNilMatcherWhenGlobEmpty(t *testing.T) {
	r := ExtractRule{OutPath: "common.js"}
	assert.Nil(t, r.Rule().Matcher)
}

func TestCompiledExtractRulesPreservesOrder(t *testing.T) {
	opts := Default()
	opts.ExtractRules = []ExtractRule{
		{OutPath: "a.js"},
		{OutPath: "b.js"},
	}
	rules := opts.CompiledExtractRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "a.js", rules[0].OutPath)
	assert.Equal(t, "b.js", rules[1].OutPath)
}

func TestParseSourceMapMode(t *testing.T) {
	assert.Equal(t, SourceMapInline, ParseSourceMapMode("inline"))
	assert.Equal(t, SourceMapLinkedWithComment, ParseSourceMapMode("linked"))
	assert.Equal(t, SourceMapExternalWithoutComment, ParseSourceMapMode("external"))
	assert.Equal(t, SourceMapNone, ParseSourceMapMode(""))
	assert.Equal(t, SourceMapNone, ParseSourceMapMode("bogus"))
}

func TestDumpYAMLRoundTripsThroughLoadYAMLFile(t *testing.T) {
	opts := Default()
	opts.EntryPoints = []EntryPoint{{Path: "./src/main.js", MIMEType: "text/javascript"}}
	opts.ExtractRules = []ExtractRule{{MinUseCount: 2, OutPath: "common.js"}}

	out, err := DumpYAML(opts)
	require.NoError(t, err)

	roundTripped, err := LoadYAMLFile(out)
	require.NoError(t, err)
	require.Len(t, roundTripped.EntryPoints, 1)
	assert.Equal(t, "./src/main.js", roundTripped.EntryPoints[0].Path)
	assert.Equal(t, opts.CSS.Import, roundTripped.CSS.Import)
	require.Len(t, roundTripped.ExtractRules, 1)
	assert.Equal(t, "common.js", roundTripped.ExtractRules[0].OutPath)
}

func TestFromViperDecodesSetValues(t *testing.T) {
	v := viper.New()
	v.Set("entryPoints", []map[string]string{{"path": "./a.js"}})
	v.Set("resolver.extensions", []string{".js"})

	opts, err := FromViper(v)
	require.NoError(t, err)
	require.Len(t, opts.EntryPoints, 1)
	assert.Equal(t, "./a.js", opts.EntryPoints[0].Path)
}
