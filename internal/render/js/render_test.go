package js

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmodule "github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/textdoc"
)

func parseJSON(t *testing.T, src string) *Node {
	t.Helper()
	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	n := FromJSON(raw)
	require.NotNil(t, n)
	return n
}

func TestConstantFoldingRemovesDeadIfBranch(t *testing.T) {
	// if (process.env.NODE_ENV === "production") { a(); } else { b(); }
	// with NODE_ENV defined as "development", so the else branch survives.
	source := `if (process.env.NODE_ENV === "production") { a(); } else { b(); }`
	ast := `{
		"type": "Program",
		"start": 0, "end": 65,
		"body": [{
			"type": "IfStatement",
			"start": 0, "end": 65,
			"test": {"type": "BinaryExpression", "start": 4, "end": 41, "operator": "===",
				"left": {"type": "MemberExpression", "start": 4, "end": 24, "computed": false,
					"object": {"type": "MemberExpression", "start": 4, "end": 15, "computed": false,
						"object": {"type": "Identifier", "start": 4, "end": 11, "name": "process"},
						"property": {"type": "Identifier", "start": 12, "end": 15, "name": "env"}},
					"property": {"type": "Identifier", "start": 16, "end": 24, "name": "NODE_ENV"}},
				"right": {"type": "Literal", "start": 29, "end": 41, "value": "production"}},
			"consequent": {"type": "BlockStatement", "start": 43, "end": 51,
				"body": [{"type": "ExpressionStatement", "start": 45, "end": 49}]},
			"alternate": {"type": "BlockStatement", "start": 57, "end": 65,
				"body": [{"type": "ExpressionStatement", "start": 59, "end": 63}]}
		}]
	}`
	root := parseJSON(t, ast)

	m := tmodule.New("a.js", true, nil)
	doc := textdoc.NewDocument(m, source)

	opts := Options{
		GlobalDefines: map[string]interface{}{"process.env.NODE_ENV": "development"},
	}
	require.NoError(t, Render(doc, root, opts, nil))

	w := textdoc.NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, "{ b(); }", w.String())
}

func TestRequireCallRegistersDependencyAndRewritesSpecifier(t *testing.T) {
	source := `require("./a")`
	ast := `{
		"type": "Program", "start": 0, "end": 14,
		"body": [{
			"type": "ExpressionStatement", "start": 0, "end": 14,
			"expression": {
				"type": "CallExpression", "start": 0, "end": 14,
				"callee": {"type": "Identifier", "start": 0, "end": 7, "name": "require"},
				"arguments": [{"type": "Literal", "start": 8, "end": 13, "value": "./a"}]
			}
		}]
	}`
	root := parseJSON(t, ast)

	m := tmodule.New("a.js", true, nil)
	doc := textdoc.NewDocument(m, source)
	require.NoError(t, Render(doc, root, Options{}, nil))

	deps := m.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, "./a", deps[0].Source)
	assert.Equal(t, tmodule.StaticImport, deps[0].Type)

	target := tmodule.New("b.js", false, nil)
	deps[0].Module = target

	w := textdoc.NewWriter("")
	require.NoError(t, doc.Write(w))
	assert.Equal(t, `require("b.js")`, w.String())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
