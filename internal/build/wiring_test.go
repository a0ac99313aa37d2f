package build

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/config"
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/resolver"
)

func TestRuntimeURLReturnsResolvedPathForNonInlineDependency(t *testing.T) {
	target := module.New("logo.png", false, nil)
	target.Path.Dir, target.Path.Stem, target.Path.Ext = "out", "logo", ".png"
	dep := module.NewDependency("./logo.png", module.Reference, 0, 0)
	dep.Module = target

	url, err := RuntimeURL(dep)
	require.NoError(t, err)
	assert.Equal(t, "out/logo.png", url)
}

func TestRuntimeURLEncodesDataURIWhenInlineRequested(t *testing.T) {
	target := module.New("logo.png", false, nil)
	target.Type = "image/png"
	target.SetBuffer([]byte{0x89, 'P', 'N', 'G'})
	dep := module.NewDependency("./logo.png", module.Reference, 0, 0)
	dep.Module = target
	dep.Inline = true

	url, err := RuntimeURL(dep)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png"))
}

func TestResolveInlineReturnsTargetContent(t *testing.T) {
	target := module.New("a.js", false, nil)
	target.SetText("x();")
	dep := module.NewDependency("./a.js", module.Reference, 0, 0)
	dep.Module = target

	content, ok, err := ResolveInline(dep)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x();", content)
}

func TestDefaultProcessorsJSStageIsNoOpWithoutASTProvider(t *testing.T) {
	res := resolver.New(func(specifier, referrer string) (resolver.ResolvedFile, bool) {
		return resolver.ResolvedFile{}, false
	}, nil)
	processors := DefaultProcessors(config.Default(), nil)
	b := New(res, processors, sizeByContent)

	entry, ok := b.resolver.GetOrCreateModule("./a.js", "")
	require.True(t, ok)
	entry.Type = "text/javascript"
	entry.SetText(`require("./missing")`)

	result, err := b.Build([]*module.Module{entry}, nil)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Empty(t, entry.Dependencies(), "JS stage without an AST provider must not register dependencies")
}

func TestDefaultProcessorsCSSStageRegistersImportDependency(t *testing.T) {
	res := resolver.New(func(specifier, referrer string) (resolver.ResolvedFile, bool) {
		if specifier == "./a.css" {
			return resolver.ResolvedFile{Path: "a.css", Exists: true}, true
		}
		return resolver.ResolvedFile{}, false
	}, nil)
	processors := DefaultProcessors(config.Default(), nil)
	b := New(res, processors, sizeByContent)

	entry, ok := b.resolver.GetOrCreateModule("./entry.css", "")
	require.True(t, ok)
	entry.Type = "text/css"
	entry.SetText(`@import url("a.css");`)

	result, err := b.Build([]*module.Module{entry}, nil)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.Len(t, entry.Dependencies(), 1)
	assert.Equal(t, module.StaticImport, entry.Dependencies()[0].Type)
}
