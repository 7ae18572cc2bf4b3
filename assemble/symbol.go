// Package assemble implements the two-pass assembler (spec §4.5, §4.6):
// a first pass builds a symbol table over a location counter, a second
// pass resolves operands and narrows literals, producing an Object ready
// for the ko package to serialize.
package assemble

import (
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/value"
	"github.com/tidwall/btree"
)

// Symbol is one entry in the assembler's symbol table (spec §3). The
// first binding/type directive or defining line naming a symbol creates
// its entry; operand references only look entries up.
type Symbol struct {
	Name     string
	Binding  parser.Binding
	Type     parser.SymType
	TypeKind value.TypeKind
	Section  parser.Section
	Offset   int
	Defined  bool

	// bindingSet distinguishes an explicit .extern/.global/.local from the
	// BindLocal zero value, so a later explicit directive can still apply
	// without being mistaken for a conflict against a placeholder.
	bindingSet bool
}

// SymbolTable holds every symbol interned during the first pass, ordered
// by name for deterministic KO string/symbol table emission (spec §4.7).
// Backed by a btree.Map, following the same ordered-map idiom
// preprocess/ranges.go adapts from the teacher's interval map.
type SymbolTable struct {
	tree btree.Map[string, *Symbol]
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// getOrCreate returns the symbol named name, creating an undefined
// placeholder entry if one does not yet exist.
func (t *SymbolTable) getOrCreate(name string) *Symbol {
	if s, ok := t.tree.Get(name); ok {
		return s
	}
	s := &Symbol{Name: name, Type: parser.TypeUnknown}
	t.tree.Set(name, s)
	return s
}

// Lookup returns the symbol named name, if interned.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	return t.tree.Get(name)
}

// All returns every symbol in ascending name order.
func (t *SymbolTable) All() []*Symbol {
	var out []*Symbol
	it := t.tree.Iter()
	for ok := it.First(); ok; ok = it.Next() {
		out = append(out, it.Value())
	}
	return out
}
