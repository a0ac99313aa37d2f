// Package graph builds the per-entry Bundle graph spec.md §4.7 describes:
// a post-order traversal of an entry module's staticImport dependencies,
// de-duplicated into a set, with cycles broken by the same visited-set
// idea esbuild's own linker uses (internal/bundler/linker.go's
// bitSet-based chunk membership tracking) to avoid revisiting a module
// already under construction.
package graph

import (
	"github.com/tpack-go/tpack/internal/module"
)

// Bundle is spec.md §3's Bundle: an entry module plus every module it
// statically pulls in, visited and recorded in post-order so that a
// module never appears before something it depends on.
type Bundle struct {
	ID          string
	EntryModule *module.Module

	// Modules is the post-order module set: dependencies before
	// dependents, entry module last.
	Modules []*module.Module

	// ParentBundles is populated by internal/extract once a module is
	// hoisted into a new common bundle that this bundle now depends on.
	ParentBundles []*Bundle

	// Async marks a bundle reached only through a dynamicImport (built
	// for a module.DynamicImport entry rather than a page's initial
	// static entry). internal/extract charges it against a rule's
	// MaxAsyncRequests instead of MaxInitialRequests.
	Async bool

	// Global marks a common bundle (built by internal/extract) as
	// eligible for every page rather than only the bundles it was
	// hoisted out of.
	Global bool

	visited map[*module.Module]bool
}

// Build constructs a Bundle for entry m: it walks m.DependenciesOfType
// (StaticImport), visiting only dependencies with a resolved Module,
// post-order, and de-duplicates so each module is added once (spec.md
// §4.7: "the bundle is a set").
func Build(relPath string, m *module.Module) *Bundle {
	b := &Bundle{
		ID:          relPath,
		EntryModule: m,
		visited:     make(map[*module.Module]bool),
	}
	b.visit(m)
	return b
}

// visit appends mod and its static-import dependencies in post-order,
// skipping anything already visited. A cycle back to a module already
// under construction (e.g. a.js staticImports b.js which staticImports
// a.js, neither an entry) is simply skipped rather than recursed into
// again — the edge still exists in the dependency graph, it's just not
// re-walked.
//
// A dependency that is itself an entry module is a bundle boundary
// (spec.md S6): "two entries A and B that statically import each other"
// must yield bundle-A = [A] and bundle-B = [B], each containing only its
// own entry, not bundle-A = [B, A]. So an entry-module dependency is
// never recursed into and never folded into the referrer's Modules —
// it's built as its own Bundle by a separate Build call instead.
func (b *Bundle) visit(mod *module.Module) {
	if b.visited[mod] {
		return
	}
	b.visited[mod] = true

	for _, dep := range mod.DependenciesOfType(module.StaticImport) {
		if dep.Module == nil {
			continue
		}
		if dep.Module.IsEntryModule {
			continue
		}
		if b.visited[dep.Module] {
			continue
		}
		b.visit(dep.Module)
	}

	b.Modules = append(b.Modules, mod)
}

// NewCommonBundle wraps an already-computed module set into a Bundle,
// for internal/extract to use when it hoists shared modules into a new
// bundle that never went through Build's traversal.
func NewCommonBundle(id string, modules []*module.Module, global bool) *Bundle {
	b := &Bundle{
		ID:      id,
		Modules: modules,
		Global:  global,
		visited: make(map[*module.Module]bool, len(modules)),
	}
	for _, m := range modules {
		b.visited[m] = true
	}
	return b
}

// Contains reports whether mod is a member of the bundle.
func (b *Bundle) Contains(mod *module.Module) bool {
	return b.visited[mod]
}

// Remove drops mod from the bundle's module list, used by
// internal/extract when hoisting a module into a new common bundle
// (spec.md §4.8 step 6).
func (b *Bundle) Remove(mod *module.Module) {
	if !b.visited[mod] {
		return
	}
	delete(b.visited, mod)
	out := b.Modules[:0]
	for _, m := range b.Modules {
		if m != mod {
			out = append(out, m)
		}
	}
	b.Modules = out
}

// AddParent records commonBundle as a parent of b (spec.md §4.8 step 6:
// "link commonBundle as a parent of those bundles").
func (b *Bundle) AddParent(commonBundle *Bundle) {
	for _, p := range b.ParentBundles {
		if p == commonBundle {
			return
		}
	}
	b.ParentBundles = append(b.ParentBundles, commonBundle)
}
