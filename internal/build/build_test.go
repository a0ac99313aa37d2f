package build

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/extract"
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/resolver"
	"github.com/tpack-go/tpack/internal/textdoc"
)

// jsProcessor finds `require("...")` calls in a toy JS-like source,
// standing in for the real AST-driven render/js pass so these tests
// don't need a JSON-AST parser.
func jsProcessor() Processor {
	return Processor{
		Name: "js",
		Match: func(mimeType string) bool {
			return mimeType == "text/javascript"
		},
		Run: func(m *module.Module, doc *textdoc.Document) error {
			content := doc.Content
			pos := 0
			for {
				rel := strings.Index(content[pos:], `require("`)
				if rel == -1 {
					break
				}
				start := pos + rel
				specStart := start + len(`require("`)
				relEnd := strings.Index(content[specStart:], `"`)
				if relEnd == -1 {
					break
				}
				specEnd := specStart + relEnd
				specifier := content[specStart:specEnd]
				callEnd := specEnd + len(`")`)

				dep := module.NewDependency(specifier, module.StaticImport, int32(specStart), int32(specEnd))
				m.AddDependency(dep)
				if err := doc.ReplaceDeferred(int32(start), int32(callEnd), func(_ *module.Module, _ *textdoc.Document) (string, error) {
					if dep.Module == nil {
						return `require("` + specifier + `")`, nil
					}
					return `require("` + dep.Module.Path.String() + `")`, nil
				}); err != nil {
					return err
				}

				pos = callEnd
			}
			return nil
		},
	}
}

func sizeByContent(m *module.Module) (int64, error) {
	content, err := m.Content()
	if err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func diskResolver(files map[string]string) resolver.Resolve {
	return func(specifier, referrerPath string) (resolver.ResolvedFile, bool) {
		path := strings.TrimPrefix(specifier, "./")
		if _, ok := files[path]; !ok {
			return resolver.ResolvedFile{}, false
		}
		return resolver.ResolvedFile{Path: path, Exists: true}, true
	}
}

func newTestBuilder(files map[string]string) *Builder {
	res := resolver.New(diskResolver(files), nil)
	return New(res, []Processor{jsProcessor()}, sizeByContent)
}

func TestBuildLoadsTransitiveDependenciesAndEmitsEntry(t *testing.T) {
	files := map[string]string{
		"a.js": `exports.x = require("./b.js");`,
		"b.js": `module.exports = 2;`,
	}
	b := newTestBuilder(files)

	entry, ok := b.resolver.GetOrCreateModule("./a.js", "")
	require.True(t, ok)
	entry.Type = "text/javascript"
	entry.SetText(files["a.js"])

	bModule, ok := b.resolver.GetOrCreateModule("./b.js", "")
	require.True(t, ok)
	bModule.Type = "text/javascript"
	bModule.SetText(files["b.js"])

	result, err := b.Build([]*module.Module{entry}, nil)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	out := result.Entries[0].Content
	assert.True(t, strings.Contains(out, `tpack.define("b.js"`))
	assert.True(t, strings.Contains(out, `tpack.define("a.js"`))
	assert.Equal(t, module.StateEmitted, entry.State())
	assert.Equal(t, module.StateEmitted, bModule.State())
	assert.Equal(t, "js", b.ProcessorName(entry))
}

func TestBuildLogsUnresolvedDependencyWithoutFailingWholeBuild(t *testing.T) {
	files := map[string]string{
		"a.js": `exports.x = require("./missing");`,
	}
	b := newTestBuilder(files)

	entry, ok := b.resolver.GetOrCreateModule("./a.js", "")
	require.True(t, ok)
	entry.Type = "text/javascript"
	entry.SetText(files["a.js"])

	result, err := b.Build([]*module.Module{entry}, nil)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.True(t, entry.HasErrors())
}

func TestBuildExtractsSharedModuleIntoCommonBundle(t *testing.T) {
	files := map[string]string{
		"a.js":      `exports.x = require("./shared.js");`,
		"b.js":      `exports.y = require("./shared.js");`,
		"shared.js": `module.exports = {};`,
	}
	b := newTestBuilder(files)

	entryA, ok := b.resolver.GetOrCreateModule("./a.js", "")
	require.True(t, ok)
	entryA.Type = "text/javascript"
	entryA.SetText(files["a.js"])

	entryB, ok := b.resolver.GetOrCreateModule("./b.js", "")
	require.True(t, ok)
	entryB.Type = "text/javascript"
	entryB.SetText(files["b.js"])

	result, err := b.Build([]*module.Module{entryA, entryB}, []extract.Rule{
		{MinUseCount: 2, OutPath: "common.js"},
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	require.Len(t, result.Common, 1)

	assert.True(t, strings.Contains(result.Common[0].Content, `tpack.define("shared.js"`))
	for _, entry := range result.Entries {
		assert.False(t, strings.Contains(entry.Content, `tpack.define("shared.js"`), "shared.js was hoisted out of the per-entry bundle")
	}
}

func TestProcessorNameEmptyForModuleWithNoMatchingProcessor(t *testing.T) {
	files := map[string]string{"a.bin": ""}
	b := newTestBuilder(files)

	entry, ok := b.resolver.GetOrCreateModule("./a.bin", "")
	require.True(t, ok)
	entry.SetBuffer([]byte{1, 2, 3})

	result, err := b.Build([]*module.Module{entry}, nil)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "", b.ProcessorName(entry))
}
