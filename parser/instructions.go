package parser

// OperandKind is one accepted value shape for an instruction operand slot.
// Unlike value.Kind (the evaluator's runtime union), OperandKind
// distinguishes the plain vs kOS "value"-wrapped encodings, since the
// instruction table constrains operands at that granularity (spec §4.4).
// Grounded directly on original_source/src/parser/instructions.rs's
// OperandType enum.
type OperandKind int

const (
	OKNull OperandKind = iota
	OKBool
	OKByte
	OKInt16
	OKInt32
	OKArgMarker
	OKScalarInt
	OKScalarDouble
	OKBoolValue
	// OKStringValue is the one kind every string literal checks as; pass 2
	// emits it as String or StringValue from the operand's wrap flag.
	OKStringValue
	// OKDouble is a plain (non-wrapped) double. No instruction signature
	// accepts it: kOS has no plain-double operand encoding, only the
	// value-wrapped ScalarDouble (via pushv or a .f64v/.sd data entry).
	OKDouble
	// OKLabel accepts a symbol/label reference, resolved in pass 2. Not
	// present in the Rust OperandType enum (labels are recognized
	// syntactically, not as a value kind) but needed here since KASM's
	// parser must accept a label name anywhere the original's pass1
	// accepts an identifier operand.
	OKLabel
)

// Slot is the set of operand kinds accepted at one operand position.
type Slot []OperandKind

func (s Slot) accepts(k OperandKind) bool {
	for _, sk := range s {
		if sk == k {
			return true
		}
	}
	return false
}

// Signature is one accepted operand-count-and-kind overload for a
// mnemonic; an instruction may have several (e.g. call takes 1 or 2
// operands).
type Signature []Slot

// Instr is a mnemonic's opcode and its accepted operand signatures.
type Instr struct {
	Mnemonic   string
	Opcode     byte
	Signatures []Signature
}

// instructionTable is the real kOS instruction set (spec's ADD-DOMAIN-STACK
// section; grounded on original_source/src/parser/instructions.rs). lbrt
// (0xf0) is intentionally excluded: it is an artifact of the original
// assembler's older location-counter bookkeeping, superseded by this
// implementation's inner/outer label qualification (spec §3, §4.5).
var instructionTable = buildInstructionTable()

func sv() Slot { return Slot{OKStringValue} }
func jumpTarget() Slot {
	return Slot{OKStringValue, OKInt16, OKInt32, OKByte}
}

func buildInstructionTable() map[string]*Instr {
	t := map[string]*Instr{}
	add := func(mnemonic string, opcode byte, sigs ...Signature) {
		t[mnemonic] = &Instr{Mnemonic: mnemonic, Opcode: opcode, Signatures: sigs}
	}
	noOperands := Signature{}

	add("eof", 0x31, noOperands)
	add("eop", 0x32, noOperands)
	add("nop", 0x33, noOperands)
	add("sto", 0x34, Signature{sv()})
	add("uns", 0x35, noOperands)
	add("gmb", 0x36, Signature{sv()})
	add("smb", 0x37, Signature{sv()})
	add("gidx", 0x38, noOperands)
	add("sidx", 0x39, noOperands)
	add("bfa", 0x3a, Signature{jumpTarget()})
	add("jmp", 0x3b, Signature{jumpTarget()})
	add("add", 0x3c, noOperands)
	add("sub", 0x3d, noOperands)
	add("mul", 0x3e, noOperands)
	add("div", 0x3f, noOperands)
	add("pow", 0x40, noOperands)
	add("cgt", 0x41, noOperands)
	add("clt", 0x42, noOperands)
	add("cge", 0x43, noOperands)
	add("cle", 0x44, noOperands)
	add("ceq", 0x45, noOperands)
	add("cne", 0x46, noOperands)
	add("neg", 0x47, noOperands)
	add("bool", 0x48, noOperands)
	add("not", 0x49, noOperands)
	add("and", 0x4a, noOperands)
	add("or", 0x4b, noOperands)
	add("call", 0x4c,
		Signature{sv()},
		Signature{sv(), {OKStringValue, OKInt16, OKInt32}},
	)
	add("ret", 0x4d, Signature{{OKInt16}})
	add("push", 0x4e, Signature{{
		OKNull, OKByte, OKInt16, OKInt32, OKStringValue, OKArgMarker,
	}})
	// pushv is a pseudo-instruction (spec §9 design note): same opcode as
	// push, but its operand is always encoded in kOS's "value"-wrapped
	// form rather than push's plain form.
	add("pushv", 0x4e, Signature{{
		OKNull, OKBoolValue, OKScalarInt, OKScalarDouble, OKStringValue, OKArgMarker,
	}})
	add("pop", 0x4f, noOperands)
	add("dup", 0x50, noOperands)
	add("swap", 0x51, noOperands)
	add("eval", 0x52, noOperands)
	add("addt", 0x53, Signature{{OKBool}}, Signature{{OKInt32}})
	add("rmvt", 0x54, noOperands)
	add("wait", 0x55, noOperands)
	add("gmet", 0x57, Signature{sv()})
	add("stol", 0x58, Signature{sv()})
	add("stog", 0x59, Signature{sv()})
	add("bscp", 0x5a, Signature{{OKInt16}, {OKInt16}})
	add("escp", 0x5b, Signature{{OKInt16}})
	add("stoe", 0x5c, Signature{sv()})
	add("phdl", 0x5d, Signature{{OKByte, OKInt16, OKInt32}})
	add("btr", 0x5e, Signature{jumpTarget()})
	add("exst", 0x5f, noOperands)
	add("argb", 0x60, noOperands)
	add("targ", 0x61, noOperands)
	add("tcan", 0x62, noOperands)
	add("prl", 0xce, Signature{sv()})
	add("pdrl", 0xcd, Signature{sv(), {OKBool}})

	return t
}

// lookupInstr returns the instruction entry for mnemonic (case-sensitive,
// matching the original's lowercase-only mnemonic table).
func lookupInstr(mnemonic string) (*Instr, bool) {
	i, ok := instructionTable[mnemonic]
	return i, ok
}
