// Package parser implements KASM's instruction and directive parser
// (spec §4.4): it consumes preprocessed tokens and produces a logical
// sequence of labeled items consumed by the first and second assembler
// passes.
package parser

import (
	"github.com/kerbalasm/kasm/source"
	"github.com/kerbalasm/kasm/value"
)

// Section names the active section an item belongs to (spec §3).
type Section int

const (
	SectionText Section = iota
	SectionData
)

func (s Section) String() string {
	if s == SectionData {
		return ".data"
	}
	return ".text"
}

// Binding is a symbol's linkage (spec §3).
type Binding int

const (
	BindLocal Binding = iota
	BindGlobal
	BindExtern
)

// SymType classifies what a symbol names (spec §3).
type SymType int

const (
	TypeUnknown SymType = iota
	TypeFunc
	TypeValue
	TypeTypedData
)

// Operand is one parsed instruction or .data operand: either a resolved
// literal (Lit.Kind() != invalid), a label reference awaiting pass-2
// resolution (IsLabel), or a pushv-style wrap flag applying to Lit.
type Operand struct {
	IsLabel bool
	Label   string
	Lit     value.Value
	Wrap    value.Wrap
	Span    source.Span
}

// Label is an outer or inner label definition (spec §3, §4.5). Name is the
// fully qualified name (inner labels already joined to their outer label
// by the time the parser emits them, e.g. "outer.inner").
type Label struct {
	Name  string
	Inner bool
	Span  source.Span
}

// Instruction is a parsed mnemonic with its resolved opcode and operand
// list (spec §4.4). Operand kind/arity has already been checked against
// instructionTable; only label resolution remains, for pass 2.
type Instruction struct {
	Mnemonic string
	Opcode   byte
	Operands []Operand
	Span     source.Span
}

// DataEntry is one `NAME .<typekind> <literal>` line inside `.section
// .data` (spec §4.4).
type DataEntry struct {
	Name     string
	TypeKind value.TypeKind
	Lit      value.Value
	Span     source.Span
}

// Attr is a binding/type directive attaching an attribute to a named
// symbol (spec §4.4: .extern, .global, .local, .type, .func).
type Attr struct {
	Name    string
	Binding *Binding
	Type    *SymType
	// TypeKind is set together with Type == TypeTypedData, naming the
	// .data typekind the symbol was declared with via `.type <kind> name`.
	TypeKind value.TypeKind
	// Func marks this as a `.func` region-opening directive, which applies
	// to the next label defined and leaves Name empty, rather than a plain
	// binding/type attribute (spec §3 "Function Region").
	Func bool
	Span source.Span
}

// SectionSwitch is a `.section .text|.data` directive.
type SectionSwitch struct {
	Section Section
	Span    source.Span
}

// Item is one element of the parsed program: exactly one of Label,
// Instruction, Data, Attr, or Switch is non-nil.
type Item struct {
	Label       *Label
	Instruction *Instruction
	Data        *DataEntry
	Attr        *Attr
	Switch      *SectionSwitch
}

// Program is the parser's output: the full ordered item sequence.
type Program struct {
	Items []Item
}

func labelItem(l *Label) Item          { return Item{Label: l} }
func instrItem(i *Instruction) Item    { return Item{Instruction: i} }
func dataItem(d *DataEntry) Item       { return Item{Data: d} }
func attrItem(a *Attr) Item            { return Item{Attr: a} }
func switchItem(s *SectionSwitch) Item { return Item{Switch: s} }
