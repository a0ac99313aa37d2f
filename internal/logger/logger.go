// Package logger implements the ambient diagnostics collector shared by
// every component of the bundler core. It is deliberately small: there is
// no terminal here, no color detection, and no CLI formatting, since those
// belong to the out-of-scope CLI glue (see SPEC_FULL.md §2.1). What survives
// from the teacher is the shape of a message: a kind, a location, and a
// deferred collector that accumulates messages instead of printing them as
// they occur.
package logger

import (
	"sort"
	"sync"
)

// Loc is a 0-based byte offset from the start of a module's content.
type Loc struct {
	Start int32
}

// Range is a [Loc, Loc+Len) byte span.
type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Note
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		panic("invalid MsgKind")
	}
}

// MsgLocation is the remapped-or-not source position a Msg refers to, per
// spec.md §7 "Log remapping": (line, column) are computed from the owning
// module's line map, then further remapped through a source map and/or a
// submodule's parent offset when those are present.
type MsgLocation struct {
	File       string
	Line       int // 1-based
	Column     int // 0-based, in bytes
	Length     int
	LineText   string
	Suggestion string
}

type MsgData struct {
	Text     string
	Location *MsgLocation

	// Carries an optional component-specific detail value. No component
	// in this module sets it.
	UserDetail interface{}
}

type Msg struct {
	Kind  MsgKind
	Data  MsgData
	Notes []MsgData
}

// sortableMsgs lets Done() return messages in a stable, file/position order
// regardless of which goroutine recorded them first.
type sortableMsgs []Msg

func (a sortableMsgs) Len() int      { return len(a) }
func (a sortableMsgs) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a sortableMsgs) Less(i, j int) bool {
	ai, aj := a[i], a[j]
	aiLoc, ajLoc := ai.Data.Location, aj.Data.Location
	if aiLoc == nil || ajLoc == nil {
		return aiLoc == nil && ajLoc != nil
	}
	if aiLoc.File != ajLoc.File {
		return aiLoc.File < ajLoc.File
	}
	if aiLoc.Line != ajLoc.Line {
		return aiLoc.Line < ajLoc.Line
	}
	if aiLoc.Column != ajLoc.Column {
		return aiLoc.Column < ajLoc.Column
	}
	if ai.Kind != aj.Kind {
		return ai.Kind < aj.Kind
	}
	return ai.Data.Text < aj.Data.Text
}

// Log is the aggregate, build-wide sink. Components never print directly;
// they call AddMsg and the caller of Build/Transform decides what to do
// with the result once Done is called.
type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

// NewDeferLog returns a Log that only accumulates messages in memory, in
// whatever order possibly-concurrent workers hand them in (§5 Concurrency
// model); Done() sorts them once for deterministic output.
func NewDeferLog() Log {
	var msgs sortableMsgs
	var mutex sync.Mutex
	var hasErrors bool

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sort.Stable(msgs)
			out := make([]Msg, len(msgs))
			copy(out, msgs)
			return out
		},
	}
}
