package js

import (
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/pathutil"
	"github.com/tpack-go/tpack/internal/textdoc"
)

// ShimResolver resolves the runtime specifier used to satisfy a free
// `process` reference (spec.md §4.3: "bind the free name to a require of
// the process shim module"). It is supplied by the bundler layer, which
// knows the path of its process shim.
type ShimResolver func() (specifier string, ok bool)

type renderer struct {
	doc                 *textdoc.Document
	opts                Options
	shim                ShimResolver
	processShimInserted bool
}

// Render walks root (the externally supplied AST for doc's module),
// performing constant folding under opts, registering require()
// dependencies, and inserting a process shim binding if a free `process`
// identifier is referenced anywhere in the tree (spec.md §4.3).
func Render(doc *textdoc.Document, root *Node, opts Options, shim ShimResolver) error {
	r := &renderer{doc: doc, opts: opts, shim: shim}
	return r.renderNode(root, NewScope())
}

func (r *renderer) renderNode(n *Node, scope *Scope) error {
	if n == nil {
		return nil
	}
	switch n.Type {
	case "Program":
		hoist(n.ChildList("body"), scope)
		return r.renderList(n.ChildList("body"), scope)

	case "BlockStatement":
		child := scope.Push(false)
		hoist(n.ChildList("body"), child)
		return r.renderList(n.ChildList("body"), child)

	case "FunctionDeclaration", "FunctionExpression", "ArrowFunctionExpression":
		if name := n.Child("id"); name != nil {
			if nm, _ := name.Fields["name"].(string); nm != "" {
				scope.BindVar(nm)
			}
		}
		fnScope := scope.Push(true)
		for _, p := range n.ChildList("params") {
			if p.Type == "Identifier" {
				if nm, _ := p.Fields["name"].(string); nm != "" {
					fnScope.Bind(nm)
				}
			}
		}
		return r.renderNode(n.Child("body"), fnScope)

	case "VariableDeclaration":
		kind, _ := n.Fields["kind"].(string)
		for _, decl := range n.ChildList("declarations") {
			if id := decl.Child("id"); id != nil && id.Type == "Identifier" {
				if nm, _ := id.Fields["name"].(string); nm != "" {
					if kind == "var" {
						scope.BindVar(nm)
					} else {
						scope.Bind(nm)
					}
				}
			}
			if err := r.renderNode(decl.Child("init"), scope); err != nil {
				return err
			}
		}
		return nil

	case "IfStatement":
		return r.renderIf(n, scope)

	case "ConditionalExpression":
		return r.renderConditional(n, scope)

	case "LogicalExpression":
		return r.renderLogical(n, scope)

	case "CallExpression":
		if err := r.maybeRegisterRequire(n, scope); err != nil {
			return err
		}
		if err := r.renderNode(n.Child("callee"), scope); err != nil {
			return err
		}
		return r.renderList(n.ChildList("arguments"), scope)

	case "Identifier":
		name, _ := n.Fields["name"].(string)
		if name == "process" && scope.IsFree("process") {
			return r.insertProcessShim()
		}
		return nil

	case "CatchClause":
		child := scope.Push(false)
		if param := n.Child("param"); param != nil && param.Type == "Identifier" {
			if nm, _ := param.Fields["name"].(string); nm != "" {
				child.Bind(nm)
			}
		}
		return r.renderNode(n.Child("body"), child)

	case "ForStatement":
		child := scope.Push(false)
		if init := n.Child("init"); init != nil {
			if err := r.renderNode(init, child); err != nil {
				return err
			}
		}
		if test := n.Child("test"); test != nil {
			if err := r.renderNode(test, child); err != nil {
				return err
			}
		}
		return r.renderNode(n.Child("body"), child)

	default:
		return r.walkChildren(n, scope)
	}
}

// hoist pre-binds every var/function declaration reachable in a
// statement list without descending into nested functions, so a forward
// reference inside the same function scope still counts as bound
// (spec.md §4.3: "var declarations bind in the nearest function-level
// scope").
func hoist(stmts []*Node, scope *Scope) {
	for _, stmt := range stmts {
		switch stmt.Type {
		case "FunctionDeclaration":
			if id := stmt.Child("id"); id != nil {
				if nm, _ := id.Fields["name"].(string); nm != "" {
					scope.BindVar(nm)
				}
			}
		case "VariableDeclaration":
			if kind, _ := stmt.Fields["kind"].(string); kind == "var" {
				for _, decl := range stmt.ChildList("declarations") {
					if id := decl.Child("id"); id != nil && id.Type == "Identifier" {
						if nm, _ := id.Fields["name"].(string); nm != "" {
							scope.BindVar(nm)
						}
					}
				}
			}
		}
	}
}

func (r *renderer) renderList(nodes []*Node, scope *Scope) error {
	for _, n := range nodes {
		if err := r.renderNode(n, scope); err != nil {
			return err
		}
	}
	return nil
}

// walkChildren is the generic fallback of spec.md §4.3's "Failure
// semantics": unknown node kinds never abort, they just recurse into
// every child that looks like a node.
func (r *renderer) walkChildren(n *Node, scope *Scope) error {
	for _, v := range n.Fields {
		switch vv := v.(type) {
		case *Node:
			if err := r.renderNode(vv, scope); err != nil {
				return err
			}
		case []*Node:
			if err := r.renderList(vv, scope); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *renderer) renderIf(n *Node, scope *Scope) error {
	test := n.Child("test")
	consequent := n.Child("consequent")
	alternate := n.Child("alternate")

	val, ok := foldConst(test, scope, r.opts)
	if !ok || !n.HasRange || !consequent.HasRange {
		if err := r.renderNode(test, scope); err != nil {
			return err
		}
		if err := r.renderNode(consequent, scope); err != nil {
			return err
		}
		return r.renderNode(alternate, scope)
	}

	var live *Node
	if truthy(val) {
		live = consequent
	} else {
		live = alternate
	}

	if live == nil {
		// Dead with no alternate: the whole statement is unreachable.
		if err := r.doc.Remove(n.Start, n.End); err != nil {
			return err
		}
		return nil
	}
	if err := r.doc.Remove(n.Start, live.Start); err != nil {
		return err
	}
	if live.End < n.End {
		if err := r.doc.Remove(live.End, n.End); err != nil {
			return err
		}
	}
	return r.renderNode(live, scope)
}

func (r *renderer) renderConditional(n *Node, scope *Scope) error {
	test := n.Child("test")
	consequent := n.Child("consequent")
	alternate := n.Child("alternate")

	val, ok := foldConst(test, scope, r.opts)
	if !ok || !n.HasRange {
		if err := r.renderNode(test, scope); err != nil {
			return err
		}
		if err := r.renderNode(consequent, scope); err != nil {
			return err
		}
		return r.renderNode(alternate, scope)
	}

	live := alternate
	if truthy(val) {
		live = consequent
	}
	if live == nil || !live.HasRange {
		return r.renderNode(live, scope)
	}
	if err := r.doc.Remove(n.Start, live.Start); err != nil {
		return err
	}
	if live.End < n.End {
		if err := r.doc.Remove(live.End, n.End); err != nil {
			return err
		}
	}
	return r.renderNode(live, scope)
}

// renderLogical implements "logical && || with short-circuit (the dead
// operand's source range is removed)" (spec.md §4.3).
func (r *renderer) renderLogical(n *Node, scope *Scope) error {
	op, _ := n.Fields["operator"].(string)
	left := n.Child("left")
	right := n.Child("right")

	if err := r.renderNode(left, scope); err != nil {
		return err
	}

	leftVal, ok := foldConst(left, scope, r.opts)
	shortCircuits := ok && ((op == "&&" && !truthy(leftVal)) || (op == "||" && truthy(leftVal)))

	if shortCircuits && n.HasRange && left.HasRange {
		if err := r.doc.Remove(left.End, n.End); err != nil {
			return err
		}
		return nil
	}
	return r.renderNode(right, scope)
}

// maybeRegisterRequire implements spec.md §4.3's dependency registration:
// a CallExpression whose callee is the free identifier `require` with a
// string-literal first argument registers a staticImport dependency over
// that argument's byte range, deferred-replaced with the resolved
// module's id once linking completes.
func (r *renderer) maybeRegisterRequire(n *Node, scope *Scope) error {
	callee := n.Child("callee")
	if callee == nil || callee.Type != "Identifier" {
		return nil
	}
	name, _ := callee.Fields["name"].(string)
	if name != "require" || !scope.IsFree("require") {
		return nil
	}
	args := n.ChildList("arguments")
	if len(args) == 0 {
		return nil
	}
	arg := args[0]
	if arg.Type != "Literal" || !arg.HasRange {
		return nil
	}
	specifier, _ := arg.Fields["value"].(string)
	if specifier == "" {
		return nil
	}

	dep := module.NewDependency(specifier, module.StaticImport, arg.Start, arg.End)
	r.doc.Module.AddDependency(dep)

	return r.doc.ReplaceDeferred(arg.Start, arg.End, func(m *module.Module, d *textdoc.Document) (string, error) {
		if dep.Module == nil {
			return pathutil.QuoteJS(specifier), nil
		}
		return pathutil.QuoteJS(dep.Module.Path.String()), nil
	})
}

// insertProcessShim splices a single prelude binding at byte 0 the first
// time a free `process` identifier is found, per spec.md §4.3.
func (r *renderer) insertProcessShim() error {
	if r.processShimInserted || r.shim == nil {
		return nil
	}
	r.processShimInserted = true
	return r.doc.ReplaceDeferred(0, 0, func(m *module.Module, d *textdoc.Document) (string, error) {
		specifier, ok := r.shim()
		if !ok {
			return "", nil
		}
		return "var process = require(" + pathutil.QuoteJS(specifier) + ");\n", nil
	})
}
