package js

import (
	"math"
	"strconv"
	"strings"
)

// undefinedValue is the sentinel constant value for the "undefined"
// identifier and the result of a fold that knows a value is absent
// without being JS null.
type undefinedValue struct{}

// Options configures constant folding, spec.md §4.3: "a registered name
// such as process.env.NODE_ENV or typeof window resolves to a literal."
type Options struct {
	// GlobalDefines maps a dotted member-expression path (e.g.
	// "process.env.NODE_ENV") to the literal value it folds to.
	GlobalDefines map[string]interface{}

	// GlobalTypeof maps a bare free identifier (e.g. "process") to the
	// string its `typeof` resolves to (e.g. "object"), so `typeof window
	// !== "undefined"` can fold without `window` itself being defined.
	GlobalTypeof map[string]string
}

// dottedPath flattens a chain of non-computed MemberExpressions (and a
// leading Identifier) into "a.b.c", or returns ok=false if the chain
// contains a computed access or anything but Identifiers.
func dottedPath(n *Node) (string, bool) {
	switch n.Type {
	case "Identifier":
		name, _ := n.Fields["name"].(string)
		return name, name != ""
	case "MemberExpression":
		if computed, _ := n.Fields["computed"].(bool); computed {
			return "", false
		}
		obj := n.Child("object")
		prop := n.Child("property")
		if obj == nil || prop == nil || prop.Type != "Identifier" {
			return "", false
		}
		base, ok := dottedPath(obj)
		if !ok {
			return "", false
		}
		name, _ := prop.Fields["name"].(string)
		return base + "." + name, true
	default:
		return "", false
	}
}

// foldConst attempts to evaluate n to a compile-time JS value. scope is
// used to confirm a matched identifier is actually free (not shadowed by
// a local binding), per spec.md §4.3.
func foldConst(n *Node, scope *Scope, opts Options) (interface{}, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type {
	case "Literal":
		if v, ok := n.Fields["value"]; ok {
			return v, true
		}
		return nil, false

	case "Identifier":
		name, _ := n.Fields["name"].(string)
		if name == "undefined" && scope.IsFree("undefined") {
			return undefinedValue{}, true
		}
		return nil, false

	case "MemberExpression":
		if path, ok := dottedPath(n); ok {
			root := path
			if i := indexOfDot(path); i >= 0 {
				root = path[:i]
			}
			if scope.IsFree(root) {
				if v, ok := opts.GlobalDefines[path]; ok {
					return v, true
				}
			}
		}
		return nil, false

	case "UnaryExpression":
		return foldUnary(n, scope, opts)

	case "BinaryExpression":
		return foldBinary(n, scope, opts)

	case "LogicalExpression":
		v, ok := foldLogical(n, scope, opts)
		return v, ok

	case "ConditionalExpression":
		test, ok := foldConst(n.Child("test"), scope, opts)
		if !ok {
			return nil, false
		}
		if truthy(test) {
			return foldConst(n.Child("consequent"), scope, opts)
		}
		return foldConst(n.Child("alternate"), scope, opts)

	case "SequenceExpression":
		exprs := n.ChildList("expressions")
		if len(exprs) == 0 {
			return nil, false
		}
		var last interface{}
		var ok bool
		for _, e := range exprs {
			last, ok = foldConst(e, scope, opts)
			if !ok {
				return nil, false
			}
		}
		return last, true

	default:
		return nil, false
	}
}

func indexOfDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func foldUnary(n *Node, scope *Scope, opts Options) (interface{}, bool) {
	op, _ := n.Fields["operator"].(string)
	arg := n.Child("argument")

	if op == "typeof" {
		if arg != nil && arg.Type == "Identifier" {
			name, _ := arg.Fields["name"].(string)
			if scope.IsFree(name) {
				if t, ok := opts.GlobalTypeof[name]; ok {
					return t, true
				}
				if name == "undefined" {
					return "undefined", true
				}
			}
		}
		v, ok := foldConst(arg, scope, opts)
		if !ok {
			return nil, false
		}
		return jsTypeof(v), true
	}

	v, ok := foldConst(arg, scope, opts)
	if !ok {
		return nil, false
	}
	switch op {
	case "!":
		return !truthy(v), true
	case "void":
		return undefinedValue{}, true
	case "-":
		n, ok := toNumber(v)
		if !ok {
			return nil, false
		}
		return -n, true
	case "+":
		n, ok := toNumber(v)
		if !ok {
			return nil, false
		}
		return n, true
	case "~":
		n, ok := toNumber(v)
		if !ok {
			return nil, false
		}
		return float64(^int32(n)), true
	default:
		return nil, false
	}
}

func foldBinary(n *Node, scope *Scope, opts Options) (interface{}, bool) {
	op, _ := n.Fields["operator"].(string)
	left, lok := foldConst(n.Child("left"), scope, opts)
	right, rok := foldConst(n.Child("right"), scope, opts)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case "===":
		return strictEquals(left, right), true
	case "!==":
		return !strictEquals(left, right), true
	case "==":
		return looseEquals(left, right), true
	case "!=":
		return !looseEquals(left, right), true
	}

	if ls, lIsStr := left.(string); lIsStr {
		if rs, rIsStr := right.(string); rIsStr && op == "+" {
			return ls + rs, true
		}
	}

	ln, lok2 := toNumber(left)
	rn, rok2 := toNumber(right)
	if !lok2 || !rok2 {
		return nil, false
	}
	switch op {
	case "+":
		return ln + rn, true
	case "-":
		return ln - rn, true
	case "*":
		return ln * rn, true
	case "/":
		return ln / rn, true
	case "%":
		return math.Mod(ln, rn), true
	case "**":
		return math.Pow(ln, rn), true
	case "<":
		return ln < rn, true
	case "<=":
		return ln <= rn, true
	case ">":
		return ln > rn, true
	case ">=":
		return ln >= rn, true
	case "|":
		return float64(int32(ln) | int32(rn)), true
	case "&":
		return float64(int32(ln) & int32(rn)), true
	case "^":
		return float64(int32(ln) ^ int32(rn)), true
	case "<<":
		return float64(int32(ln) << uint32(rn)), true
	case ">>":
		return float64(int32(ln) >> uint32(rn)), true
	case ">>>":
		return float64(uint32(ln) >> uint32(rn)), true
	default:
		return nil, false
	}
}

// foldLogical implements short-circuit folding: it only needs the left
// operand's value to decide the whole expression's value when the
// operator short-circuits, which is what lets the renderer drop the dead
// right-hand operand's source range without evaluating it (spec.md §4.3).
func foldLogical(n *Node, scope *Scope, opts Options) (interface{}, bool) {
	op, _ := n.Fields["operator"].(string)
	left, lok := foldConst(n.Child("left"), scope, opts)
	if !lok {
		return nil, false
	}
	if op == "&&" && !truthy(left) {
		return left, true
	}
	if op == "||" && truthy(left) {
		return left, true
	}
	return foldConst(n.Child("right"), scope, opts)
}

func truthy(v interface{}) bool {
	switch vv := v.(type) {
	case undefinedValue:
		return false
	case nil:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	case float64:
		return vv != 0 && !math.IsNaN(vv)
	default:
		return true
	}
}

func toNumber(v interface{}) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case bool:
		if vv {
			return 1, true
		}
		return 0, true
	case undefinedValue:
		return math.NaN(), true
	default:
		return 0, false
	}
}

func jsTypeof(v interface{}) string {
	switch v.(type) {
	case undefinedValue:
		return "undefined"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "object"
	default:
		return "object"
	}
}

func strictEquals(a, b interface{}) bool {
	_, aUndef := a.(undefinedValue)
	_, bUndef := b.(undefinedValue)
	if aUndef || bUndef {
		return aUndef && bUndef
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return false
	}
}

func looseEquals(a, b interface{}) bool {
	if strictEquals(a, b) {
		return true
	}
	_, aUndef := a.(undefinedValue)
	_, bUndef := b.(undefinedValue)
	if (aUndef || a == nil) && (bUndef || b == nil) {
		return true
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if as, ok := a.(string); ok {
		an, aok = stringToNumber(as)
	}
	if bs, ok := b.(string); ok {
		bn, bok = stringToNumber(bs)
	}
	return aok && bok && an == bn
}

func stringToNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
