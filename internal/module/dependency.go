package module

// DependencyType is one of the five dependency flavors named in spec.md §3.
type DependencyType uint8

const (
	// External is a build-time dependency whose content is consumed during
	// parsing (e.g. a Sass @import chain).
	External DependencyType = iota
	// ExternalList is a glob-matched set of externals.
	ExternalList
	// Reference is a runtime reference; content may be inlined based on
	// Inline.
	Reference
	// StaticImport must be loaded before the referring module can execute.
	StaticImport
	// DynamicImport is loaded on demand at run time.
	DynamicImport
)

func (t DependencyType) String() string {
	switch t {
	case External:
		return "external"
	case ExternalList:
		return "externalList"
	case Reference:
		return "reference"
	case StaticImport:
		return "staticImport"
	case DynamicImport:
		return "dynamicImport"
	default:
		return "unknown"
	}
}

// Dependency is spec.md §3's ModuleDependency: an edge recorded by a
// renderer while it scans a module's content, later resolved and (for most
// types) rewritten in place via a deferred replacement callback on the
// owning module's TextDocument.
type Dependency struct {
	// Source is the raw specifier text as written (e.g. "./foo", "a.css").
	// Empty for ExternalList entries, which carry a glob pattern in Detail
	// instead.
	Source string

	Type DependencyType

	// URL is set instead of Source for dependencies expressed as a runtime
	// URL (css url(...), html src=).
	URL string

	// Index/EndIndex is the byte range in the referrer's original content
	// that this dependency was discovered at; EndIndex is exclusive. A
	// deferred rewrite replaces [Index, EndIndex) once Module is resolved.
	Index    int32
	EndIndex int32
	HasRange bool

	// Path is the resolved on-disk path, set once resolution completes.
	Path string

	// Module is the resolved target, set once resolution completes. Nil
	// until then, and permanently nil for dependencies that failed to
	// resolve (the failure is recorded as a log on the referrer instead).
	Module *Module

	// Inline requests the referenced content be embedded in the referrer
	// rather than linked (spec.md §4.4 url(...) inlining, §4.5 <script
	// src> inlining).
	Inline bool

	// Circular marks an edge that would revisit a bundle currently under
	// construction (spec.md §4.8 S6). Graph construction does not set it:
	// graph.Bundle.visit skips such edges without marking them. Builder
	// skips resolving an edge whose Circular is true.
	Circular bool

	// Detail carries type-specific data: the glob pattern for
	// ExternalList, the import mode ("url") for a CSS reference, etc.
	Detail map[string]interface{}
}

// NewDependency records a dependency discovered over a byte range of the
// referrer's original content.
func NewDependency(source string, typ DependencyType, index, endIndex int32) *Dependency {
	return &Dependency{
		Source:   source,
		Type:     typ,
		Index:    index,
		EndIndex: endIndex,
		HasRange: true,
		Detail:   make(map[string]interface{}),
	}
}

// AddDependency appends d to m's ordered dependency list, de-duplicating
// per spec.md §3's "a module appears at most once per dependency
// specifier/endIndex pair" rule: a later call with the same (Source,
// EndIndex) replaces the earlier entry in place rather than appending.
func (m *Module) AddDependency(d *Dependency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.dependencies {
		if existing.Source == d.Source && existing.EndIndex == d.EndIndex && existing.HasRange == d.HasRange {
			m.dependencies[i] = d
			return
		}
	}
	m.dependencies = append(m.dependencies, d)
}

// Dependencies returns a snapshot of m's ordered dependency list.
func (m *Module) Dependencies() []*Dependency {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Dependency, len(m.dependencies))
	copy(out, m.dependencies)
	return out
}

// DependenciesOfType returns the subset of Dependencies() matching typ, in
// order; used by graph construction to restrict traversal to staticImport
// edges (spec.md §4.8).
func (m *Module) DependenciesOfType(typ DependencyType) []*Dependency {
	all := m.Dependencies()
	out := make([]*Dependency, 0, len(all))
	for _, d := range all {
		if d.Type == typ {
			out = append(out, d)
		}
	}
	return out
}

// AddGeneratedModule appends a sibling output module created by m (e.g. a
// CSS file extracted from a JS module). Per spec.md §3, generated modules
// never appear in the main graph's dependency edges: callers must still
// register a Dependency separately if the generated module should also be
// reachable as e.g. a staticImport target.
func (m *Module) AddGeneratedModule(g *Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.OriginalModule = m
	m.GeneratedModules = append(m.GeneratedModules, g)
}
