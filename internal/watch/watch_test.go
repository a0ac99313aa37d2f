package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/build"
	"github.com/tpack-go/tpack/internal/module"
	"github.com/tpack-go/tpack/internal/resolver"
)

func TestWatcherResetsAndReenqueuesChangedModule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	res := resolver.New(func(specifier, referrer string) (resolver.ResolvedFile, bool) {
		return resolver.ResolvedFile{}, false
	}, nil)
	m := module.New(path, true, nil)
	m.SetText("one")
	m.FinishLoading()
	res.Put(m)

	b := build.New(res, nil, func(*module.Module) (int64, error) { return 0, nil })

	w, err := New(b)
	require.NoError(t, err)
	defer w.Close()

	reset := make(chan *module.Module, 1)
	w.OnReset = func(m *module.Module) { reset <- m }

	require.NoError(t, w.Add(path))
	w.Start()

	require.Equal(t, module.StateLoaded, m.State())
	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))

	select {
	case got := <-reset:
		require.Same(t, m, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher to reset module")
	}
	require.Equal(t, module.StateInitial, m.State())
}
