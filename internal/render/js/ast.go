// Package js implements spec.md §4.3's JavaScript module renderer: given
// an externally produced AST, it walks the tree performing constant
// folding under globalDefines, require()/process dependency registration,
// and lexical scope tracking.
//
// esbuild's own internal/js_parser and internal/js_ast are a full,
// typed ECMAScript grammar — exactly what spec.md's Non-goals exclude
// ("the core consumes an externally supplied parser"). Rather than invent
// a typed Go AST that no external parser actually produces, Node here is
// the generic, schema-less shape real JS-AST producers hand across a
// process boundary (ESTree-style JSON: a "type" discriminator plus
// arbitrarily nested object/array fields) — which is exactly why spec.md
// §4.3's "Failure semantics" names a *generic* walker that "descends into
// any child whose value looks like an AST node" instead of a typed switch
// over every node kind.
package js

// Node is one parsed AST node. Fields is the node's non-reserved payload
// (whatever an external parser attached — "left"/"right" for a
// BinaryExpression, "callee"/"arguments" for a CallExpression, and so
// on). Start/End are 0-based byte offsets into the owning module's
// content; parsers that omit range info leave HasRange false and the
// node is walked but never used as a fold/replace target.
type Node struct {
	Type     string
	Start    int32
	End      int32
	HasRange bool
	Fields   map[string]interface{}
}

// Field returns the named child as a *Node, ([]interface{} of *Node), or
// nil if absent or not an AST value.
func (n *Node) Field(name string) interface{} {
	if n == nil || n.Fields == nil {
		return nil
	}
	return n.Fields[name]
}

// Child returns the named field coerced to a single *Node, or nil.
func (n *Node) Child(name string) *Node {
	v, _ := n.Field(name).(*Node)
	return v
}

// ChildList returns the named field coerced to a []*Node, or nil.
func (n *Node) ChildList(name string) []*Node {
	v, _ := n.Field(name).([]*Node)
	return v
}

// FromJSON builds a Node tree from the generic decoded-JSON shape
// (map[string]interface{} / []interface{} / string / float64 / bool /
// nil) that encoding/json produces for an arbitrary ESTree document. A
// map is treated as a node iff it carries a "type" string key; anything
// else is left as an opaque leaf value reachable only via Fields.
func FromJSON(raw interface{}) *Node {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	typ, ok := obj["type"].(string)
	if !ok {
		return nil
	}
	n := &Node{Type: typ, Fields: make(map[string]interface{}, len(obj))}
	if start, ok := numberField(obj, "start"); ok {
		n.Start = start
		n.HasRange = true
	}
	if end, ok := numberField(obj, "end"); ok {
		n.End = end
	}
	for k, v := range obj {
		if k == "type" || k == "start" || k == "end" {
			continue
		}
		n.Fields[k] = convertValue(v)
	}
	return n
}

func numberField(obj map[string]interface{}, key string) (int32, bool) {
	switch v := obj[key].(type) {
	case float64:
		return int32(v), true
	case int:
		return int32(v), true
	case int32:
		return v, true
	default:
		return 0, false
	}
}

func convertValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		if node := FromJSON(vv); node != nil {
			return node
		}
		return vv
	case []interface{}:
		out := make([]*Node, 0, len(vv))
		allNodes := len(vv) > 0
		converted := make([]interface{}, len(vv))
		for i, item := range vv {
			c := convertValue(item)
			converted[i] = c
			if n, ok := c.(*Node); ok {
				out = append(out, n)
			} else {
				allNodes = false
			}
		}
		if allNodes {
			return out
		}
		return converted
	default:
		return v
	}
}

// Walk visits n and every descendant reachable through Fields, calling
// visit on each *Node found (depth-first, pre-order). This is spec.md
// §4.3's generic walker: it needs no per-type switch because it descends
// into any field whose value is itself a *Node or a []*Node, which covers
// any node shape an external parser can produce.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, v := range n.Fields {
		switch vv := v.(type) {
		case *Node:
			Walk(vv, visit)
		case []*Node:
			for _, c := range vv {
				Walk(c, visit)
			}
		}
	}
}
