package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/module"
)

func staticDep(from, to *module.Module) {
	d := module.NewDependency(to.OriginalPath, module.StaticImport, 0, 0)
	d.Module = to
	from.AddDependency(d)
}

func TestBuildPostOrderDedupesSharedDependency(t *testing.T) {
	a := module.New("a.js", true, nil)
	b := module.New("b.js", false, nil)
	c := module.New("c.js", false, nil)
	staticDep(a, b)
	staticDep(a, c)
	staticDep(b, c)

	bundle := Build("a.js", a)

	require.Len(t, bundle.Modules, 3)
	assert.Equal(t, c, bundle.Modules[0])
	assert.Equal(t, b, bundle.Modules[1])
	assert.Equal(t, a, bundle.Modules[2])
	assert.True(t, bundle.Contains(c))
}

func TestBuildSkipsUnresolvedDependencies(t *testing.T) {
	a := module.New("a.js", true, nil)
	d := module.NewDependency("./missing", module.StaticImport, 0, 0)
	a.AddDependency(d)

	bundle := Build("a.js", a)

	require.Len(t, bundle.Modules, 1)
	assert.Equal(t, a, bundle.Modules[0])
}

func TestBuildBreaksCycles(t *testing.T) {
	a := module.New("a.js", true, nil)
	b := module.New("b.js", false, nil)
	staticDep(a, b)
	staticDep(b, a)

	bundle := Build("a.js", a)

	require.Len(t, bundle.Modules, 2)
	assert.Equal(t, b, bundle.Modules[0])
	assert.Equal(t, a, bundle.Modules[1])
}

func TestBuildStopsAtEntryModuleBoundaryOnTwoEntryCycle(t *testing.T) {
	// spec.md S6: two entries A and B that statically import each other
	// must yield bundle-A = [A] and bundle-B = [B] — each containing only
	// its own entry, neither pulling the other in — not bundle-A = [B, A].
	a := module.New("a.js", true, nil)
	b := module.New("b.js", true, nil)
	staticDep(a, b)
	staticDep(b, a)

	bundleA := Build("a.js", a)
	bundleB := Build("b.js", b)

	require.Len(t, bundleA.Modules, 1)
	assert.Equal(t, a, bundleA.Modules[0])
	assert.False(t, bundleA.Contains(b))

	require.Len(t, bundleB.Modules, 1)
	assert.Equal(t, b, bundleB.Modules[0])
	assert.False(t, bundleB.Contains(a))
}

func TestBuildIgnoresNonStaticDependencies(t *testing.T) {
	a := module.New("a.js", true, nil)
	b := module.New("b.js", false, nil)
	d := module.NewDependency("./b", module.DynamicImport, 0, 0)
	d.Module = b
	a.AddDependency(d)

	bundle := Build("a.js", a)

	require.Len(t, bundle.Modules, 1)
	assert.Equal(t, a, bundle.Modules[0])
}

func TestRemoveDropsModuleFromBundle(t *testing.T) {
	a := module.New("a.js", true, nil)
	b := module.New("b.js", false, nil)
	staticDep(a, b)
	bundle := Build("a.js", a)
	require.Len(t, bundle.Modules, 2)

	bundle.Remove(b)

	assert.Len(t, bundle.Modules, 1)
	assert.False(t, bundle.Contains(b))
}

func TestAddParentDedupes(t *testing.T) {
	a := module.New("a.js", true, nil)
	bundle := Build("a.js", a)
	common := Build("common.js", module.New("common.js", false, nil))

	bundle.AddParent(common)
	bundle.AddParent(common)

	assert.Len(t, bundle.ParentBundles, 1)
}
