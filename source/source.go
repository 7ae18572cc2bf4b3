// Package source addresses the byte buffers that make up a KASM compilation:
// the root file together with anything pulled in via .include. Every other
// phase of the pipeline refers back into a Unit rather than copying text, so
// that diagnostics can always recover a file:line:col.
package source

import (
	"fmt"
	"sort"
)

// Unit is a named byte buffer with a stable identifier used in diagnostics.
// The identifier may be overridden independently of the path it was loaded
// from, to let a host present upstream filenames in error messages (the -f
// flag, see the assembler's Config).
type Unit struct {
	name string
	path string
	data []byte
	// lines[i] is the byte offset at which line i+1 begins; lines[0] == 0.
	lines []int
}

// NewUnit builds a Unit, scanning data once to index line starts.
func NewUnit(name, path string, data []byte) *Unit {
	u := &Unit{name: name, path: path, data: data, lines: []int{0}}
	for i, b := range data {
		if b == '\n' {
			u.lines = append(u.lines, i+1)
		}
	}
	return u
}

// Name returns the diagnostic-facing identifier for this unit.
func (u *Unit) Name() string { return u.name }

// SetName overrides the diagnostic identifier without changing Path or Data.
func (u *Unit) SetName(name string) { u.name = name }

// Path returns the filesystem path the unit was loaded from, or "" for
// synthetic units (e.g. ones built from in-memory macro expansion).
func (u *Unit) Path() string { return u.path }

// Data returns the unit's raw bytes. Callers must not mutate the result.
func (u *Unit) Data() []byte { return u.data }

// Pos resolves a byte offset into this unit to a human-readable position.
func (u *Unit) Pos(offset int) Pos {
	line := sort.Search(len(u.lines), func(i int) bool { return u.lines[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return Pos{Name: u.name, Line: line + 1, Col: offset - u.lines[line] + 1, Offset: offset}
}

// Pos is a resolved source location: 1-based line and column.
type Pos struct {
	Name   string
	Line   int
	Col    int
	Offset int
}

func (p Pos) String() string {
	if p.Line <= 0 {
		return p.Name
	}
	return fmt.Sprintf("%s:%d:%d", p.Name, p.Line, p.Col)
}

// Span is a half-open byte range [Start, End) within a Unit. A Span with a
// nil Unit is a synthetic span (e.g. for tokens produced by macro expansion
// with no single originating location) and stringifies as "<generated>".
type Span struct {
	Unit       *Unit
	Start, End int
}

// Pos returns the position of the span's start.
func (s Span) Pos() Pos {
	if s.Unit == nil {
		return Pos{Name: "<generated>"}
	}
	return s.Unit.Pos(s.Start)
}

func (s Span) String() string { return s.Pos().String() }

// Text returns the source text covered by the span.
func (s Span) Text() string {
	if s.Unit == nil {
		return ""
	}
	return string(s.Unit.Data()[s.Start:s.End])
}

// Join returns the smallest span covering both a and b. Either may be the
// zero Span, in which case the other is returned unchanged. Panics if a and
// b name different units.
func Join(a, b Span) Span {
	if a.Unit == nil {
		return b
	}
	if b.Unit == nil {
		return a
	}
	if a.Unit != b.Unit {
		panic("source: Join across different units")
	}
	start, end := a.Start, a.End
	if b.Start < start {
		start = b.Start
	}
	if b.End > end {
		end = b.End
	}
	return Span{Unit: a.Unit, Start: start, End: end}
}
