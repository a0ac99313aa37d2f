package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/graph"
	"github.com/tpack-go/tpack/internal/module"
)

func textModule(path, content string) *module.Module {
	m := module.New(path, false, nil)
	m.Type = "text/javascript"
	m.SetText(content)
	return m
}

func staticDep(from, to *module.Module) {
	dep := module.NewDependency(to.OriginalPath, module.StaticImport, 0, 0)
	dep.Module = to
	from.AddDependency(dep)
}

func sizeByContent(m *module.Module) (int64, error) {
	content, err := m.Content()
	if err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func TestExtractHoistsModuleSharedAcrossBundles(t *testing.T) {
	shared := textModule("shared.js", "exports.x = 1;")
	a := textModule("a.js", `require("./shared");`)
	b := textModule("b.js", `require("./shared");`)
	staticDep(a, shared)
	staticDep(b, shared)

	bundleA := graph.Build("a.js", a)
	bundleB := graph.Build("b.js", b)

	created, err := Extract([]*graph.Bundle{bundleA, bundleB}, []Rule{
		{MinUseCount: 2, OutPath: "common.js"},
	}, sizeByContent)
	require.NoError(t, err)
	require.Len(t, created, 1)

	common := created[0]
	assert.Equal(t, "common.js", common.ID)
	assert.True(t, common.Contains(shared))
	assert.False(t, bundleA.Contains(shared))
	assert.False(t, bundleB.Contains(shared))
	assert.Contains(t, bundleA.ParentBundles, common)
	assert.Contains(t, bundleB.ParentBundles, common)
}

func TestExtractRespectsMinUseCount(t *testing.T) {
	shared := textModule("shared.js", "exports.x = 1;")
	onlyOne := textModule("only.js", `require("./shared");`)
	other := textModule("other.js", `1;`)
	staticDep(onlyOne, shared)

	bundleA := graph.Build("only.js", onlyOne)
	bundleB := graph.Build("other.js", other)

	created, err := Extract([]*graph.Bundle{bundleA, bundleB}, []Rule{
		{MinUseCount: 2, OutPath: "common.js"},
	}, sizeByContent)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.True(t, bundleA.Contains(shared))
}

func TestExtractAbortsRuleWhenCandidateSetBelowMinSize(t *testing.T) {
	shared := textModule("shared.js", "x")
	a := textModule("a.js", `require("./shared");`)
	b := textModule("b.js", `require("./shared");`)
	staticDep(a, shared)
	staticDep(b, shared)

	bundleA := graph.Build("a.js", a)
	bundleB := graph.Build("b.js", b)

	created, err := Extract([]*graph.Bundle{bundleA, bundleB}, []Rule{
		{MinUseCount: 2, MinSize: 10_000, OutPath: "common.js"},
	}, sizeByContent)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestExtractMatcherStillDragsInUnmatchedStaticDeps(t *testing.T) {
	vendorHelper := textModule("src/helper.js", "exports.y = 2;")
	vendor := textModule("vendor/lib.js", `require("../src/helper");`)
	staticDep(vendor, vendorHelper)

	a := textModule("a.js", `require("./vendor/lib");`)
	b := textModule("b.js", `require("./vendor/lib");`)
	staticDep(a, vendor)
	staticDep(b, vendor)

	bundleA := graph.Build("a.js", a)
	bundleB := graph.Build("b.js", b)

	created, err := Extract([]*graph.Bundle{bundleA, bundleB}, []Rule{
		{
			Matcher:     func(path string) bool { return strings.Contains(path, "vendor") },
			MinUseCount: 2,
			OutPath:     "vendor-common.js",
		},
	}, sizeByContent)
	require.NoError(t, err)
	require.Len(t, created, 1)

	common := created[0]
	assert.True(t, common.Contains(vendor))
	assert.True(t, common.Contains(vendorHelper), "a matched module's static dependency must ride along even though its own path doesn't match")
}

func TestExtractSplitsOverflowingCombinationByMaxSize(t *testing.T) {
	big := textModule("big.js", strings.Repeat("b", 100))
	small := textModule("small.js", strings.Repeat("s", 10))
	a := textModule("a.js", `require("./big"); require("./small");`)
	b := textModule("b.js", `require("./big"); require("./small");`)
	staticDep(a, big)
	staticDep(a, small)
	staticDep(b, big)
	staticDep(b, small)

	bundleA := graph.Build("a.js", a)
	bundleB := graph.Build("b.js", b)

	created, err := Extract([]*graph.Bundle{bundleA, bundleB}, []Rule{
		{MinUseCount: 2, MaxSize: 50, OutPath: "common.js"},
	}, sizeByContent)
	require.NoError(t, err)
	require.Len(t, created, 1)

	common := created[0]
	assert.False(t, common.Contains(big), "the oversized module must not fit under MaxSize")
	assert.True(t, common.Contains(small))
	assert.True(t, bundleA.Contains(big), "modules that don't fit stay in their original bundle")
}

func TestExtractReCheckAdmissibilityAsCombinationsCommit(t *testing.T) {
	// A imports all three of m1, m2, m3; B only imports m1, C only m2, D
	// only m3. Each module is shared by exactly two bundles (A plus one
	// other), so with minUseCount=2 and maxSize unbounded all three
	// combinations ({A,B}, {A,C}, {A,D}) pass the static MinUseCount
	// filter. maxInitialRequests=2 means A may accept at most two common
	// bundles as parents, so only two of the three may actually commit —
	// committing all three would leave A with 3 parents.
	m1 := textModule("m1.js", "exports.x = 1;")
	m2 := textModule("m2.js", "exports.x = 2;")
	m3 := textModule("m3.js", "exports.x = 3;")
	a := textModule("a.js", `require("./m1"); require("./m2"); require("./m3");`)
	b := textModule("b.js", `require("./m1");`)
	c := textModule("c.js", `require("./m2");`)
	d := textModule("d.js", `require("./m3");`)
	staticDep(a, m1)
	staticDep(a, m2)
	staticDep(a, m3)
	staticDep(b, m1)
	staticDep(c, m2)
	staticDep(d, m3)

	bundleA := graph.Build("a.js", a)
	bundleB := graph.Build("b.js", b)
	bundleC := graph.Build("c.js", c)
	bundleD := graph.Build("d.js", d)

	created, err := Extract([]*graph.Bundle{bundleA, bundleB, bundleC, bundleD}, []Rule{
		{MinUseCount: 2, MaxInitialRequests: 2, OutPath: "common.js"},
	}, sizeByContent)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(bundleA.ParentBundles), 2, "invariant #4: parentBundles.length <= maxInitialRequests")
	assert.Len(t, created, 2, "only two of the three candidate combinations may commit before a is saturated")
}

func TestExtractMaxInitialRequestsLimitsAdmissibleBundles(t *testing.T) {
	shared := textModule("shared.js", "exports.x = 1;")
	a := textModule("a.js", `require("./shared");`)
	b := textModule("b.js", `require("./shared");`)
	c := textModule("c.js", `require("./shared");`)
	staticDep(a, shared)
	staticDep(b, shared)
	staticDep(c, shared)

	bundleA := graph.Build("a.js", a)
	bundleB := graph.Build("b.js", b)
	bundleC := graph.Build("c.js", c)
	bundleA.ParentBundles = append(bundleA.ParentBundles, graph.NewCommonBundle("existing.js", nil, false))

	created, err := Extract([]*graph.Bundle{bundleA, bundleB, bundleC}, []Rule{
		{MinUseCount: 2, MaxInitialRequests: 1, OutPath: "common.js"},
	}, sizeByContent)
	require.NoError(t, err)
	require.Len(t, created, 1)

	common := created[0]
	assert.NotContains(t, bundleA.ParentBundles, common, "a already has a parent bundle at the limit so it's excluded")
	assert.True(t, common.Contains(shared))
	assert.True(t, bundleA.Contains(shared), "a was not admissible so it keeps its own copy")
	assert.False(t, bundleB.Contains(shared))
	assert.False(t, bundleC.Contains(shared))
}
