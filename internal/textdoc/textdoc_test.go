package textdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/module"
)

func TestReplaceAndWrite(t *testing.T) {
	m := module.New("a.js", false, nil)
	doc := NewDocument(m, `require("./a")`)
	require.NoError(t, doc.Replace(8, 13, `"./b"`))

	w := NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, `require("./b")`, w.String())
}

func TestOverlappingEditsAreRejected(t *testing.T) {
	m := module.New("a.js", false, nil)
	doc := NewDocument(m, "0123456789")
	require.NoError(t, doc.Replace(2, 5, "x"))
	err := doc.Replace(4, 6, "y")
	require.Error(t, err)
	var overlap *OverlappingEdit
	assert.ErrorAs(t, err, &overlap)
}

func TestDeferredReplacementResolvesAtWriteTime(t *testing.T) {
	m := module.New("a.js", false, nil)
	doc := NewDocument(m, `require("./a")`)
	resolved := "mod-42"
	require.NoError(t, doc.ReplaceDeferred(8, 13, func(m *module.Module, d *Document) (string, error) {
		return `"` + resolved + `"`, nil
	}))

	w := NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, `require("mod-42")`, w.String())
}

func TestInsertAndAppend(t *testing.T) {
	m := module.New("a.js", false, nil)
	doc := NewDocument(m, "ab")
	require.NoError(t, doc.Insert(1, "-"))
	require.NoError(t, doc.Append("!"))

	w := NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, "a-b!", w.String())
}

func TestWriteWithSourceMapProducesMappings(t *testing.T) {
	m := module.New("a.js", false, nil)
	doc := NewDocument(m, "line0\nline1\n")

	w := NewWriter("out.js")
	require.NoError(t, doc.Write(w))
	require.NotNil(t, w.SourceMap)
	assert.NotEmpty(t, w.SourceMap.Sources)
}
