package js

// Scope is spec.md §4.3's scope-tracking chain: a name->binding map per
// lexical level, with a flag marking function-level scopes (where `var`
// binds) versus block-level ones (where `let`/`const`/catch
// params/for-header bindings bind).
type Scope struct {
	parent     *Scope
	isFunction bool
	bindings   map[string]bool
}

// NewScope creates the root (Program) scope.
func NewScope() *Scope {
	return &Scope{isFunction: true, bindings: make(map[string]bool)}
}

// Push creates a child scope. isFunction is true for a
// FunctionExpression/FunctionDeclaration body; false for any other block.
func (s *Scope) Push(isFunction bool) *Scope {
	return &Scope{parent: s, isFunction: isFunction, bindings: make(map[string]bool)}
}

// Bind records a lexical (let/const/catch-param/for-header) binding in
// the current scope.
func (s *Scope) Bind(name string) {
	s.bindings[name] = true
}

// BindVar records a var binding in the nearest enclosing function scope.
func (s *Scope) BindVar(name string) {
	for scope := s; ; scope = scope.parent {
		if scope.isFunction || scope.parent == nil {
			scope.bindings[name] = true
			return
		}
	}
}

// HasBinding walks the scope chain looking for name.
func (s *Scope) HasBinding(name string) bool {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.bindings[name] {
			return true
		}
	}
	return false
}

// IsFree reports whether name is unbound anywhere in the chain, i.e. it
// still refers to whatever global of that name the renderer assumes
// (spec.md §4.3: "the predicate 'name X is free' is required to suppress
// accidental rewriting of require, process, etc., when shadowed").
func (s *Scope) IsFree(name string) bool {
	return !s.HasBinding(name)
}
