package assemble

import (
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/parser"
)

// Assemble runs both passes over prog, returning the resolved Object the
// ko package serializes (spec §4.5, §4.6). The location-counter invariant
// (spec §8: "the location counter after pass 1 equals the instruction
// count emitted in pass 2") holds by construction: both passes walk the
// same Program in the same order and increment their counters on the
// same Instruction items.
func Assemble(prog *parser.Program, h *diag.Handler) (*Object, error) {
	syms, err := FirstPass(prog, h)
	if err != nil {
		return nil, err
	}
	return SecondPass(prog, syms, h)
}
