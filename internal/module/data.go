package module

import (
	"fmt"

	"github.com/tpack-go/tpack/internal/pathutil"
	"github.com/tpack-go/tpack/internal/sourcemap"
)

// Generator is the deferred-generation form of spec.md §3's data model:
// "a deferred generator object exposing generate(module) → {data,
// sourceMap?}". Reading Content/Buffer/SourceMapData triggers Generate
// exactly once and caches the result.
type Generator interface {
	Generate(m *Module) (GeneratedData, error)
}

// GeneratedData is what a Generator produces. Set IsBuffer to choose
// between Text and Buffer.
type GeneratedData struct {
	Text      string
	Buffer    []byte
	IsBuffer  bool
	SourceMap *sourcemap.Builder
}

type dataKind uint8

const (
	dataAbsent dataKind = iota
	dataText
	dataBuffer
	dataGenerator
)

// data is Module's "exactly one of (text, buffer, generator, absent)"
// invariant from spec.md §3, plus the memoization state for the generator
// form.
type data struct {
	kind      dataKind
	text      string
	buffer    []byte
	generator Generator

	generated   bool
	generateErr error
}

// DataUnavailable is the spec.md §7 error kind for reading an absent
// data field.
type DataUnavailable struct {
	Path string
}

func (e *DataUnavailable) Error() string {
	return fmt.Sprintf("module: data unavailable for %q", e.Path)
}

// SetText installs literal text content, clearing any buffer/generator.
func (m *Module) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data{kind: dataText, text: text}
}

// SetBuffer installs opaque binary content.
func (m *Module) SetBuffer(buf []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data{kind: dataBuffer, buffer: buf}
}

// SetGenerator installs a deferred generator; it runs at most once, the
// first time Content/Buffer/SourceMapData is read.
func (m *Module) SetGenerator(g Generator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data{kind: dataGenerator, generator: g}
}

// HasData reports whether data has been assigned at all.
func (m *Module) HasData() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.kind != dataAbsent
}

func (m *Module) ensureGenerated() error {
	// Caller holds m.mu.
	if m.data.kind != dataGenerator || m.data.generated {
		return m.data.generateErr
	}
	result, err := m.data.generator.Generate(m)
	m.data.generated = true
	if err != nil {
		m.data.generateErr = err
		return err
	}
	if result.IsBuffer {
		m.data.buffer = result.Buffer
	} else {
		m.data.text = result.Text
	}
	if result.SourceMap != nil {
		m.setSourceMapLocked(result.SourceMap)
	}
	return nil
}

// Content returns the module's text, generating it first if the data is a
// deferred generator.
func (m *Module) Content() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data.kind == dataAbsent {
		return "", &DataUnavailable{Path: m.OriginalPath}
	}
	if err := m.ensureGenerated(); err != nil {
		return "", err
	}
	if m.data.kind == dataBuffer {
		return "", fmt.Errorf("module: %q has binary data, not text", m.OriginalPath)
	}
	return m.data.text, nil
}

// Buffer returns the module's binary content, generating it first if
// needed. Text content is returned as its UTF-8 bytes.
func (m *Module) Buffer() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data.kind == dataAbsent {
		return nil, &DataUnavailable{Path: m.OriginalPath}
	}
	if err := m.ensureGenerated(); err != nil {
		return nil, err
	}
	if m.data.kind == dataBuffer {
		return m.data.buffer, nil
	}
	return []byte(m.data.text), nil
}

// SourceMapData returns the module's composite source map, generating the
// underlying data first if needed. It returns nil if no source map was
// ever assigned.
func (m *Module) SourceMapData() (*sourcemap.Builder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureGenerated(); err != nil {
		return nil, err
	}
	return m.sourceMapData, nil
}

// SetSourceMapData assigns a composite source map directly (as opposed to
// one returned from a Generator). Per spec.md §3: on assignment, sources[]
// are resolved against OriginalPath and File is set to OriginalPath.
func (m *Module) SetSourceMapData(b *sourcemap.Builder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setSourceMapLocked(b)
}

func (m *Module) setSourceMapLocked(b *sourcemap.Builder) {
	if b == nil {
		m.sourceMapData = nil
		return
	}
	for i, s := range b.Sources {
		if s == "" || s[0] != '/' {
			b.Sources[i] = resolveAgainst(m.OriginalPath, s)
		}
	}
	b.File = m.OriginalPath
	m.sourceMapData = b
}

func resolveAgainst(originalPath, source string) string {
	if source == "" {
		return originalPath
	}
	dir, _, _ := pathutil.SplitDirBaseExt(originalPath)
	return pathutil.Join(dir, source)
}
