package module

import (
	"github.com/tpack-go/tpack/internal/logger"
	"github.com/tpack-go/tpack/internal/pathutil"
)

// LogLevel mirrors logger.MsgKind for module-scoped diagnostics
// (spec.md §7).
type LogLevel uint8

const (
	LevelError LogLevel = iota
	LevelWarning
	LevelNote
)

func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	default:
		return "note"
	}
}

// LogEntry is one of spec.md §3's "logs": a level, message, optional
// source position, and code frame.
type LogEntry struct {
	Level   LogLevel
	Message string

	HasPosition bool
	SourcePath  string
	Line        int32
	Column      int32
	LineText    string
}

// AddLog records a diagnostic against a byte offset in m's current
// content. Per spec.md §7: the position is computed via the line map of
// the module's current content; if a source map is present it is further
// remapped through GetSource to the original file; if m is itself a
// submodule, the parent's offset is then added to the result.
func (m *Module) AddLog(level LogLevel, message string, offset int32, hasOffset bool) {
	entry := LogEntry{Level: level, Message: message}

	if hasOffset {
		content, err := m.Content()
		if err == nil {
			lm := pathutil.NewLineMap(content)
			line, col := lm.LineColumn(offset)
			entry.LineText = lm.LineText(line)

			m.mu.Lock()
			hasParentPos := m.HasParentPos
			parentLine, parentCol := m.ParentLine, m.ParentColumn
			sourceMapData := m.sourceMapData
			originalPath := m.OriginalPath
			m.mu.Unlock()

			entry.HasPosition = true
			entry.SourcePath = originalPath
			entry.Line = line
			entry.Column = col

			if sourceMapData != nil {
				if pos := sourceMapData.GetSource(line, col, true, false); pos != nil {
					entry.SourcePath = pos.SourcePath
					entry.Line = pos.Line
					entry.Column = pos.Column
				}
			}

			if hasParentPos {
				if entry.Line == 0 {
					entry.Column += parentCol
				}
				entry.Line += parentLine
			}
		}
	}

	m.mu.Lock()
	m.logs = append(m.logs, toLoggerMsg(entry))
	m.mu.Unlock()
}

// Logs returns a snapshot of m's ordered diagnostics, decoded back from
// their logger.Msg storage form.
func (m *Module) Logs() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.logs))
	for i, msg := range m.logs {
		out[i] = fromLoggerMsg(msg)
	}
	return out
}

// HasErrors reports whether any recorded log is at LevelError.
func (m *Module) HasErrors() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.logs {
		if msg.Kind == logger.Error {
			return true
		}
	}
	return false
}

func toLoggerMsg(e LogEntry) logger.Msg {
	msg := logger.Msg{
		Kind: logger.MsgKind(e.Level),
		Data: logger.MsgData{Text: e.Message},
	}
	if e.HasPosition {
		msg.Data.Location = &logger.MsgLocation{
			File:     e.SourcePath,
			Line:     int(e.Line) + 1,
			Column:   int(e.Column),
			LineText: e.LineText,
		}
	}
	return msg
}

func fromLoggerMsg(msg logger.Msg) LogEntry {
	e := LogEntry{Level: LogLevel(msg.Kind), Message: msg.Data.Text}
	if loc := msg.Data.Location; loc != nil {
		e.HasPosition = true
		e.SourcePath = loc.File
		e.Line = int32(loc.Line - 1)
		e.Column = int32(loc.Column)
		e.LineText = loc.LineText
	}
	return e
}
