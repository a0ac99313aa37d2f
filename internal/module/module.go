// Package module implements the Module Graph's core unit, spec.md §3: the
// in-memory representation of one source or generated artifact. It owns
// path, lazily-generated data, dependencies, logs, sub-module links, a
// property bag, a content hash, and optional source-map state.
//
// This package has no direct teacher analogue — esbuild's own
// internal/graph.Module is built around its own AST types (js_ast.AST /
// css_ast.AST) and tree-shaking bookkeeping (EntryBits, side-effect
// classification) that this core's Non-goals exclude. The state-machine
// shape (monotonic transitions, a reset escape hatch) and the "logs carry
// a remappable position" idea are grounded on internal/graph/input.go and
// internal/logger/logger.go respectively, but every field here is named
// and typed directly off spec.md §3.
package module

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/tpack-go/tpack/internal/logger"
	"github.com/tpack-go/tpack/internal/pathutil"
	"github.com/tpack-go/tpack/internal/sourcemap"
)

// State is one of the six states named in spec.md §3. The bit layout
// matches the spec exactly: (state & 1) == 1 iff the phase is complete.
type State uint8

const (
	StateInitial  State = 0 // 000
	StateLoading  State = 2 // 010
	StateLoaded   State = 3 // 011 - phase complete
	StateEmitting State = 4 // 100
	StateEmitted  State = 5 // 101 - phase complete
	StateDeleted  State = 7 // 111 - phase complete
)

func (s State) IsPhaseComplete() bool { return s&1 == 1 }

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmitting:
		return "emitting"
	case StateEmitted:
		return "emitted"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Path is a module's mutable output path, with directory/stem/extension
// individually settable per spec.md §3.
type Path struct {
	Dir  string
	Stem string
	Ext  string
}

func (p Path) String() string {
	return pathutil.Join(p.Dir, p.Stem+p.Ext)
}

// HashSeed produces the monotonic, build-scoped counter value mixed into a
// module's hash. Per the "Process-wide hash seed" design note, this is
// supplied by the owning Builder/Graph rather than read from a package
// global, so two concurrent builds never share state.
type HashSeed func() uint64

// NewHashSeed returns a HashSeed closed over a fresh monotonic counter
// XORed with the caller-supplied tag, implementing the "Process-wide
// hash seed" design note's fix directly: esbuild's own hash assignment
// (since-deleted internal/graph) used a single package-global atomic
// counter shared by every concurrent build in the process; here each
// Builder (or CLI invocation) calls NewHashSeed once and hands the
// result to its own resolver.New/module.New calls, so two concurrent
// builds never perturb each other's hash sequence.
func NewHashSeed(tag uint64) HashSeed {
	var counter uint64
	return func() uint64 {
		return tag ^ atomic.AddUint64(&counter, 1)
	}
}

// Module is the in-memory representation of one source or generated
// artifact, spec.md §3.
type Module struct {
	// OriginalPath is the input path at creation; immutable identity
	// (combined with a sub-module suffix via pathutil.SubmodulePath to
	// disambiguate inline children).
	OriginalPath string

	// Path is the mutable output path.
	Path Path

	// IsEntryModule is immutable once set at construction.
	IsEntryModule bool

	Type string // MIME type string; selects the bundler (spec.md §3, §4.9)

	// ParentLine/ParentColumn are defined iff OriginalPath contains a "|"
	// suffix (submodule notation, spec.md §3/§6).
	ParentLine   int32
	HasParentPos bool
	ParentColumn int32

	// OriginalModule is a weak back-reference from a generated module to
	// its producer (spec.md §3).
	OriginalModule *Module

	// GeneratedModules are ordered sibling outputs created by this module
	// (e.g. a CSS file extracted from a JS module). They never appear in
	// the main graph's dependency edges (spec.md §3 invariant).
	GeneratedModules []*Module

	// Props is a keyed bag for cross-component annotations.
	Props map[string]interface{}

	NoWrite    bool
	NoCache    bool
	UpdateType string

	mu           sync.Mutex
	state        State
	dependencies []*Dependency
	logs         []logger.Msg

	data data

	sourceMapRequested bool
	sourceMapData      *sourcemap.Builder

	hashSeed HashSeed
	hash     uint64
	hashSet  bool
}

// New creates a module in StateInitial. hashSeed supplies the per-build
// counter used to derive Hash(); pass nil to use a zero seed (tests that
// don't care about hash uniqueness).
func New(originalPath string, isEntryModule bool, hashSeed HashSeed) *Module {
	if hashSeed == nil {
		hashSeed = func() uint64 { return 0 }
	}
	m := &Module{
		OriginalPath:  originalPath,
		IsEntryModule: isEntryModule,
		Props:         make(map[string]interface{}),
		hashSeed:      hashSeed,
	}
	if parent, child, ok := pathutil.ParseSubmodulePath(originalPath); ok {
		_ = parent
		_ = child
		m.HasParentPos = true
	}
	dir, stem, ext := pathutil.SplitDirBaseExt(originalPath)
	m.Path = Path{Dir: dir, Stem: stem, Ext: ext}
	return m
}

// NewSubmodule creates a module whose identity is "parent|child" and
// whose content originates at (parentLine, parentColumn) inside the
// enclosing module (spec.md §3, §4.5).
func NewSubmodule(parent *Module, childName string, parentLine, parentColumn int32, hashSeed HashSeed) *Module {
	m := New(pathutil.SubmodulePath(parent.OriginalPath, childName), false, hashSeed)
	m.ParentLine = parentLine
	m.ParentColumn = parentColumn
	m.HasParentPos = true
	return m
}

func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HashSeedFunc returns the HashSeed m was constructed with, so a
// renderer creating a submodule of m (internal/render/html's inline
// <script>/<style> bodies) can give it the same build-scoped counter
// rather than an unseeded one.
func (m *Module) HashSeedFunc() HashSeed {
	return m.hashSeed
}

// transition enforces the monotonic ordering of spec.md §3: transitions
// only ever move a module forward through initial -> loading -> loaded ->
// emitting -> emitted, or to deleted from anywhere. Reset is the only way
// to go backwards.
func (m *Module) transition(next State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next == StateDeleted || next > m.state {
		m.state = next
	}
}

func (m *Module) BeginLoading()  { m.transition(StateLoading) }
func (m *Module) FinishLoading() { m.transition(StateLoaded) }
func (m *Module) BeginEmitting() { m.transition(StateEmitting) }
func (m *Module) FinishEmitting() { m.transition(StateEmitted) }
func (m *Module) MarkDeleted()   { m.transition(StateDeleted) }

// Reset rewinds the module to initial or loaded and clears mutable data
// without releasing its identity (spec.md §4.9, used by the external
// watcher in internal/watch). It clears the dependencies, logs, data,
// source-map state, GeneratedModules, Props and the cached hash;
// OriginalPath, IsEntryModule, Type, Path, the parent position,
// OriginalModule, NoWrite, NoCache and UpdateType are kept.
func (m *Module) Reset(to State) {
	if to != StateInitial && to != StateLoaded {
		panic("module: Reset only accepts StateInitial or StateLoaded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = to
	m.dependencies = nil
	m.logs = nil
	m.data = data{}
	m.sourceMapRequested = false
	m.sourceMapData = nil
	m.GeneratedModules = nil
	m.Props = make(map[string]interface{})
	m.hashSet = false
}

// Hash lazily assigns a unique token: an xxhash of OriginalPath mixed with
// the build's monotonic seed, regenerated on Reset (per the "Process-wide
// hash seed" design note, the seed comes from the owning Builder instead
// of a package-global counter).
func (m *Module) Hash() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hashSet {
		m.hash = xxhash.Sum64String(m.OriginalPath) ^ m.hashSeed()
		m.hashSet = true
	}
	return m.hash
}
