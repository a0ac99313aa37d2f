package pathutil

// LineMap supports repeated byte-offset -> (line, column) lookups over an
// immutable string without rescanning from the start each time, the
// "line↔index mapping" utility named in spec.md §2 item 1. Lines and
// columns are both 0-based; column is a byte offset within the line.
type LineMap struct {
	content      string
	lineStartsAt []int32
}

// NewLineMap scans content once to record where each line begins.
func NewLineMap(content string) *LineMap {
	starts := []int32{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, int32(i+1))
		}
	}
	return &LineMap{content: content, lineStartsAt: starts}
}

// LineColumn converts a 0-based byte offset into a 0-based (line, column).
func (m *LineMap) LineColumn(offset int32) (line, column int32) {
	// Binary search for the last line start <= offset.
	lo, hi := 0, len(m.lineStartsAt)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.lineStartsAt[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return int32(lo), offset - m.lineStartsAt[lo]
}

// LineText returns the full text of the given 0-based line, without its
// trailing newline, for use in a code frame (spec.md §3 "logs").
func (m *LineMap) LineText(line int32) string {
	if line < 0 || int(line) >= len(m.lineStartsAt) {
		return ""
	}
	start := m.lineStartsAt[line]
	var end int32
	if int(line)+1 < len(m.lineStartsAt) {
		end = m.lineStartsAt[line+1] - 1
	} else {
		end = int32(len(m.content))
	}
	if end < start {
		end = start
	}
	text := m.content[start:end]
	if len(text) > 0 && text[len(text)-1] == '\r' {
		text = text[:len(text)-1]
	}
	return text
}
