package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeResolve(known map[string]string) Resolve {
	return func(specifier, referrerPath string) (ResolvedFile, bool) {
		path, ok := known[specifier]
		if !ok {
			return ResolvedFile{}, false
		}
		return ResolvedFile{Path: path, Exists: true}, true
	}
}

func TestGetOrCreateModuleCachesByResolvedPath(t *testing.T) {
	r := New(fakeResolve(map[string]string{"./b": "/src/b.js"}), nil)

	m1, ok := r.GetOrCreateModule("./b", "/src/a.js")
	require.True(t, ok)
	m2, ok := r.GetOrCreateModule("./b", "/src/c.js")
	require.True(t, ok)

	assert.Same(t, m1, m2)
	assert.Equal(t, "/src/b.js", m1.OriginalPath)
}

func TestGetOrCreateModuleFailsForUnknownSpecifier(t *testing.T) {
	r := New(fakeResolve(map[string]string{}), nil)
	_, ok := r.GetOrCreateModule("./missing", "/src/a.js")
	assert.False(t, ok)
}

func TestMatchExternalList(t *testing.T) {
	assert.True(t, MatchExternalList("vendor/jquery.js", []string{"vendor/**"}))
	assert.False(t, MatchExternalList("src/a.js", []string{"vendor/**"}))
}

func TestLookupMissesUncachedPath(t *testing.T) {
	r := New(fakeResolve(nil), nil)
	m, ok := r.Lookup("/src/entry.js")
	assert.False(t, ok)
	assert.Nil(t, m)
}

func TestNewDiskResolveWithOptionsTriesExtensionsInOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.js"), []byte("x"), 0o644))

	resolve := NewDiskResolveWithOptions([]string{".ts", ".js"}, nil)
	rf, ok := resolve("./b", filepath.Join(dir, "a.js"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "b.js"), rf.Path)
}

func TestNewDiskResolveWithOptionsWalksModuleDirectories(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	vendorDir := filepath.Join(root, "vendor_modules")
	require.NoError(t, os.MkdirAll(vendorDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vendorDir, "left-pad.js"), []byte("x"), 0o644))

	resolve := NewDiskResolveWithOptions([]string{".js"}, []string{"vendor_modules"})
	rf, ok := resolve("left-pad", filepath.Join(nested, "a.js"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(vendorDir, "left-pad.js"), rf.Path)
}

func TestNewDiskResolveWithOptionsFailsForUnresolvableBareSpecifier(t *testing.T) {
	dir := t.TempDir()
	resolve := NewDiskResolveWithOptions(nil, []string{"vendor_modules"})
	_, ok := resolve("left-pad", filepath.Join(dir, "a.js"))
	assert.False(t, ok)
}
