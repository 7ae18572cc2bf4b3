package assemble

import (
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/value"
)

// EncodedOperand is one operand ready for the ko emitter: a KO kind tag
// plus the already-resolved payload (spec §6, record 5: "(kind_tag,
// payload)"). A relocated operand still carries a placeholder payload;
// the matching Relocation entry tells the linker which record and
// operand slot to patch.
type EncodedOperand struct {
	Kind value.KOKind
	Lit  value.Value
}

// EncodedInstruction is one `.text` record: an opcode and its resolved
// operands, in parse order.
type EncodedInstruction struct {
	Opcode   byte
	Operands []EncodedOperand
}

// EncodedData is one `.data` record: a named, typed value in declared
// order (spec §6, record 6).
type EncodedData struct {
	Name string
	Kind value.KOKind
	Lit  value.Value
}

// Relocation instructs the linker to patch an operand with the final
// address of an external symbol (spec §6, record 7; glossary
// "Relocation").
type Relocation struct {
	Section     parser.Section
	Offset      int // index within Section's encoded record stream
	OperandSlot int
	Symbol      string
}

// Object is the fully resolved program pass 2 produces: everything the
// ko package needs to serialize a KO container (spec §4.7).
type Object struct {
	Symbols     *SymbolTable
	Text        []EncodedInstruction
	Data        []EncodedData
	Relocations []Relocation
}
