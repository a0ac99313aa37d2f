// Package sourcemap implements the composite source map engine of
// spec.md §4.1: a Builder that accumulates mappings per generated line,
// a binary-search lookup from a generated position back to an original
// one, and a functional composition operator (ApplySourceMap) that chains
// the mapping produced by one pipeline stage through the mapping produced
// by the stage before it.
//
// The VLQ encode/decode pair below and the general shape of "one sorted
// mapping list per generated line" are grounded on
// internal/sourcemap/sourcemap.go in the teacher. What's dropped is the
// teacher's ChunkBuilder/SourceMapState delta pipeline, which exists to let
// esbuild print per-file chunks on worker goroutines and stitch the deltas
// back together afterwards; this core's TextWriter (see internal/textdoc)
// writes one module at a time synchronously, so a single cumulative
// Builder is enough (spec.md §4.1, §4.2 step 2).
package sourcemap

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Mapping is one entry in a generated line's sorted mapping list.
// SourceIndex, OriginalLine, OriginalColumn and NameIndex are -1 when the
// generated position has no associated source (an "unmapped" mapping),
// mirroring the optional fields of spec.md §4.1.
type Mapping struct {
	GeneratedColumn int32
	SourceIndex     int32
	OriginalLine    int32
	OriginalColumn  int32
	NameIndex       int32
}

func (m Mapping) hasSource() bool { return m.SourceIndex >= 0 }

// ResolvedPosition is what GetSource returns for a hit.
type ResolvedPosition struct {
	SourcePath string
	Line       int32
	Column     int32
	Name       string
}

// Builder accumulates mappings for one generation pass and can serialize
// itself to the source-map v3 JSON form, or compose with the Builder of a
// preceding pipeline stage.
type Builder struct {
	File           string
	Sources        []string
	SourcesContent []string
	Names          []string

	// lines[i] holds the mappings for generated line i, kept sorted by
	// GeneratedColumn as new mappings are appended (spec.md §4.1 AddMapping).
	lines [][]Mapping

	sourceIndex map[string]int
	nameIndex   map[string]int
}

// NewBuilder creates an empty Builder for a generated file.
func NewBuilder(file string) *Builder {
	return &Builder{
		File:        file,
		sourceIndex: make(map[string]int),
		nameIndex:   make(map[string]int),
	}
}

// AddSource registers (or reuses) a source file and its original content,
// returning its index into Sources/SourcesContent.
func (b *Builder) AddSource(path string, content string) int32 {
	if i, ok := b.sourceIndex[path]; ok {
		return int32(i)
	}
	i := len(b.Sources)
	b.Sources = append(b.Sources, path)
	b.SourcesContent = append(b.SourcesContent, content)
	b.sourceIndex[path] = i
	return int32(i)
}

// AddName registers (or reuses) a symbol name, returning its index.
func (b *Builder) AddName(name string) int32 {
	if name == "" {
		return -1
	}
	if i, ok := b.nameIndex[name]; ok {
		return int32(i)
	}
	i := len(b.Names)
	b.Names = append(b.Names, name)
	b.nameIndex[name] = i
	return int32(i)
}

func (b *Builder) ensureLine(line int32) {
	for int32(len(b.lines)) <= line {
		b.lines = append(b.lines, nil)
	}
}

// AddMapping appends a mapping for (genLine, genColumn) pointing at
// (source, origLine, origColumn, name), keeping the line's mapping list
// sorted by generated column as required by spec.md §4.1. source and name
// may be empty to record an unmapped generated position.
func (b *Builder) AddMapping(genLine, genColumn int32, source string, origLine, origColumn int32, name string) {
	b.ensureLine(genLine)

	m := Mapping{GeneratedColumn: genColumn, SourceIndex: -1, OriginalLine: -1, OriginalColumn: -1, NameIndex: -1}
	if source != "" {
		m.SourceIndex = b.AddSource(source, "")
		m.OriginalLine = origLine
		m.OriginalColumn = origColumn
	}
	if name != "" {
		m.NameIndex = b.AddName(name)
	}

	line := b.lines[genLine]
	i := sort.Search(len(line), func(i int) bool { return line[i].GeneratedColumn > genColumn })
	line = append(line, Mapping{})
	copy(line[i+1:], line[i:])
	line[i] = m
	b.lines[genLine] = line
}

// GetSource finds the mapping covering (genLine, genColumn) via binary
// search for the greatest mapping whose column is <= the query column
// (spec.md §4.1). With exact=true only a mapping at precisely genColumn
// counts. adjustColumn, when the mapping is found at an earlier column,
// shifts the returned original column forward by the same delta so the
// caller gets a position inside the original token rather than at its
// start; pass false to always get the mapping's own recorded position.
func (b *Builder) GetSource(genLine, genColumn int32, adjustColumn bool, exact bool) *ResolvedPosition {
	if genLine < 0 || genLine >= int32(len(b.lines)) {
		return nil
	}
	line := b.lines[genLine]
	i := sort.Search(len(line), func(i int) bool { return line[i].GeneratedColumn > genColumn }) - 1
	if i < 0 {
		return nil
	}
	m := line[i]
	if exact && m.GeneratedColumn != genColumn {
		return nil
	}
	if !m.hasSource() {
		return nil
	}

	col := m.OriginalColumn
	if adjustColumn {
		col += genColumn - m.GeneratedColumn
	}

	var name string
	if m.NameIndex >= 0 {
		name = b.Names[m.NameIndex]
	}
	return &ResolvedPosition{
		SourcePath: b.Sources[m.SourceIndex],
		Line:       m.OriginalLine,
		Column:     col,
		Name:       name,
	}
}

// ApplySourceMap composes b (the later pipeline stage) with prev (the
// earlier stage): every mapping in b that points into a source matching
// prev.File is replaced by prev's mapping for that position, so the result
// maps straight back to prev's original sources. Mappings that don't point
// at prev.File survive unchanged. Composing with a nil prev is the
// identity (spec.md §4.1: "composing with undefined is the identity").
func (b *Builder) ApplySourceMap(prev *Builder) *Builder {
	if prev == nil {
		return b
	}
	if b == nil {
		// Composing A onto an unmapped stage replaces the stage's map with A.
		return prev
	}

	out := NewBuilder(b.File)
	out.lines = make([][]Mapping, len(b.lines))

	for lineIdx, line := range b.lines {
		newLine := make([]Mapping, 0, len(line))
		for _, m := range line {
			if !m.hasSource() || b.Sources[m.SourceIndex] != prev.File {
				// Not pointing into the previous stage's output; carry the
				// mapping through with source/name indices rebased onto out.
				nm := Mapping{GeneratedColumn: m.GeneratedColumn, SourceIndex: -1, OriginalLine: -1, OriginalColumn: -1, NameIndex: -1}
				if m.hasSource() {
					nm.SourceIndex = out.AddSource(b.Sources[m.SourceIndex], safeContent(b.SourcesContent, m.SourceIndex))
					nm.OriginalLine = m.OriginalLine
					nm.OriginalColumn = m.OriginalColumn
				}
				if m.NameIndex >= 0 {
					nm.NameIndex = out.AddName(b.Names[m.NameIndex])
				}
				newLine = append(newLine, nm)
				continue
			}

			resolved := prev.GetSource(m.OriginalLine, m.OriginalColumn, false, false)
			if resolved == nil {
				// Unmapped in the previous stage; drop the source reference but
				// keep the generated position so downstream tooling still sees a
				// line, matching "unmapped entries survive unchanged".
				newLine = append(newLine, Mapping{GeneratedColumn: m.GeneratedColumn, SourceIndex: -1, OriginalLine: -1, OriginalColumn: -1, NameIndex: -1})
				continue
			}

			name := resolved.Name
			if name == "" && m.NameIndex >= 0 {
				name = b.Names[m.NameIndex]
			}
			nm := Mapping{
				GeneratedColumn: m.GeneratedColumn,
				SourceIndex:     out.AddSource(resolved.SourcePath, ""),
				OriginalLine:    resolved.Line,
				OriginalColumn:  resolved.Column,
				NameIndex:       -1,
			}
			if name != "" {
				nm.NameIndex = out.AddName(name)
			}
			newLine = append(newLine, nm)
		}
		out.lines[lineIdx] = newLine
	}

	return out
}

func safeContent(contents []string, i int32) string {
	if int(i) < len(contents) {
		return contents[i]
	}
	return ""
}

// --- VLQ base64 encode/decode, per the source-map v3 spec ---

var base64Chars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/")

func encodeVLQ(encoded []byte, value int32) []byte {
	var vlq int32
	if value < 0 {
		vlq = ((-value) << 1) | 1
	} else {
		vlq = value << 1
	}
	for {
		digit := vlq & 31
		vlq >>= 5
		if vlq != 0 {
			digit |= 32
		}
		encoded = append(encoded, base64Chars[digit])
		if vlq == 0 {
			break
		}
	}
	return encoded
}

func decodeVLQ(encoded []byte, start int) (int32, int) {
	shift := uint(0)
	var vlq int32
	for {
		index := bytes.IndexByte(base64Chars, encoded[start])
		if index < 0 {
			break
		}
		vlq |= (int32(index) & 31) << shift
		start++
		shift += 5
		if (index & 32) == 0 {
			break
		}
	}
	value := vlq >> 1
	if (vlq & 1) != 0 {
		value = -value
	}
	return value, start
}

// --- Source map v3 JSON serialization ---

type jsonSourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// encodeMappings renders the VLQ "mappings" string: lines are separated by
// ';', mappings within a line by ','. Fields are delta-encoded against the
// previous mapping on the line (generated column) and the previous mapped
// source/line/column/name anywhere in the file, per the spec.
func (b *Builder) encodeMappings() string {
	var buf []byte
	var prevGenCol, prevSource, prevLine, prevCol, prevName int32

	for lineIdx, line := range b.lines {
		if lineIdx > 0 {
			buf = append(buf, ';')
		}
		prevGenCol = 0
		for i, m := range line {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = encodeVLQ(buf, m.GeneratedColumn-prevGenCol)
			prevGenCol = m.GeneratedColumn
			if m.hasSource() {
				buf = encodeVLQ(buf, m.SourceIndex-prevSource)
				buf = encodeVLQ(buf, m.OriginalLine-prevLine)
				buf = encodeVLQ(buf, m.OriginalColumn-prevCol)
				prevSource, prevLine, prevCol = m.SourceIndex, m.OriginalLine, m.OriginalColumn
				if m.NameIndex >= 0 {
					buf = encodeVLQ(buf, m.NameIndex-prevName)
					prevName = m.NameIndex
				}
			}
		}
	}
	return string(buf)
}

// ToJSON renders the standard source-map v3 JSON document.
func (b *Builder) ToJSON(includeContent bool) ([]byte, error) {
	doc := jsonSourceMap{
		Version:  3,
		File:     b.File,
		Sources:  b.Sources,
		Names:    b.Names,
		Mappings: b.encodeMappings(),
	}
	if doc.Sources == nil {
		doc.Sources = []string{}
	}
	if doc.Names == nil {
		doc.Names = []string{}
	}
	if includeContent {
		doc.SourcesContent = b.SourcesContent
	}
	return json.Marshal(doc)
}

// FromJSON parses a standard source-map v3 JSON document into a Builder
// whose Sources are each passed through resolveSource (spec.md §3: "On
// assignment, sources[] are resolved against originalPath"); a nil
// resolveSource keeps them as written.
func FromJSON(data []byte, resolveSource func(string) string) (*Builder, error) {
	var doc jsonSourceMap
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	b := NewBuilder(doc.File)
	for i, s := range doc.Sources {
		path := s
		if resolveSource != nil {
			path = resolveSource(s)
		}
		content := ""
		if i < len(doc.SourcesContent) {
			content = doc.SourcesContent[i]
		}
		b.AddSource(path, content)
	}
	for _, n := range doc.Names {
		b.AddName(n)
	}

	mappings := []byte(doc.Mappings)
	genLine := int32(0)
	genCol := int32(0)
	var srcIdx, origLine, origCol, nameIdx int32
	start := 0
	for start < len(mappings) {
		c := mappings[start]
		switch c {
		case ';':
			genLine++
			genCol = 0
			start++
			continue
		case ',':
			start++
			continue
		}

		var delta int32
		delta, start = decodeVLQ(mappings, start)
		genCol += delta

		hasSource := start < len(mappings) && mappings[start] != ',' && mappings[start] != ';'
		var name string
		if hasSource {
			delta, start = decodeVLQ(mappings, start)
			srcIdx += delta
			delta, start = decodeVLQ(mappings, start)
			origLine += delta
			delta, start = decodeVLQ(mappings, start)
			origCol += delta

			if start < len(mappings) && mappings[start] != ',' && mappings[start] != ';' {
				delta, start = decodeVLQ(mappings, start)
				nameIdx += delta
				if int(nameIdx) < len(b.Names) {
					name = b.Names[nameIdx]
				}
			}
		}

		source := ""
		if hasSource && int(srcIdx) < len(b.Sources) {
			source = b.Sources[srcIdx]
		}
		b.AddMapping(genLine, genCol, source, origLine, origCol, name)
	}

	return b, nil
}
