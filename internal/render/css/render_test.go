package css

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmodule "github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/textdoc"
)

func TestImportStaticElidesLine(t *testing.T) {
	source := `@import url("a.css");
body { color: red; }`
	m := tmodule.New("main.css", true, nil)
	doc := textdoc.NewDocument(m, source)

	require.NoError(t, Render(doc, source, Options{Import: ImportStatic}))

	deps := m.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "a.css", deps[0].Source)
	assert.Equal(t, tmodule.StaticImport, deps[0].Type)

	w := textdoc.NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, "\nbody { color: red; }", w.String())
}

func TestImportURLModeRegistersReferenceWithoutEliding(t *testing.T) {
	source := `@import url("a.css");`
	m := tmodule.New("main.css", true, nil)
	doc := textdoc.NewDocument(m, source)

	require.NoError(t, Render(doc, source, Options{Import: ImportURL}))

	deps := m.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, tmodule.Reference, deps[0].Type)

	w := textdoc.NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, source, w.String())
}

func TestBareURLRegistersReferenceAndRewrites(t *testing.T) {
	source := `.bg { background: url("img.png"); }`
	m := tmodule.New("main.css", true, nil)
	doc := textdoc.NewDocument(m, source)

	require.NoError(t, Render(doc, source, Options{URL: true, RuntimeURL: func(dep *tmodule.Dependency) (string, error) {
		return "/assets/img.abc123.png", nil
	}}))

	deps := m.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "img.png", deps[0].Source)

	w := textdoc.NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, `.bg { background: url("/assets/img.abc123.png"); }`, w.String())
}

func TestURLDisabledByDefaultLeavesSourceUntouched(t *testing.T) {
	source := `.bg { background: url("img.png"); }`
	m := tmodule.New("main.css", true, nil)
	doc := textdoc.NewDocument(m, source)

	require.NoError(t, Render(doc, source, Options{}))
	assert.Empty(t, m.Dependencies())

	w := textdoc.NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, source, w.String())
}
