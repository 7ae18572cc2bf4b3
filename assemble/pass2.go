package assemble

import (
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/parser"
	"github.com/kerbalasm/kasm/value"
)

// SecondPass walks prog again, this time producing encoded instructions
// and data (spec §4.6). syms is the table FirstPass built; emission order
// mirrors first-pass order, which mirrors parser order.
func SecondPass(prog *parser.Program, syms *SymbolTable, h *diag.Handler) (*Object, error) {
	p := &pass2{syms: syms, h: h, section: parser.SectionText, obj: &Object{Symbols: syms}}
	for _, item := range prog.Items {
		if err := p.item(item); err != nil {
			return p.obj, err
		}
	}
	return p.obj, h.Error()
}

type pass2 struct {
	syms    *SymbolTable
	h       *diag.Handler
	section parser.Section
	textLC  int
	obj     *Object
}

func (p *pass2) item(it parser.Item) error {
	switch {
	case it.Switch != nil:
		p.section = it.Switch.Section
	case it.Instruction != nil:
		return p.instruction(it.Instruction)
	case it.Data != nil:
		return p.data(it.Data)
	}
	return nil
}

func (p *pass2) instruction(ins *parser.Instruction) error {
	p.textLC++
	enc := EncodedInstruction{Opcode: ins.Opcode}
	for slot, op := range ins.Operands {
		eo, err := p.operand(op, slot)
		if err != nil {
			return err
		}
		enc.Operands = append(enc.Operands, eo)
	}
	p.obj.Text = append(p.obj.Text, enc)
	return nil
}

func (p *pass2) data(d *parser.DataEntry) error {
	lit := d.Lit
	kind := d.TypeKind.KOKind()
	if (kind == value.KOKindFloat || kind == value.KOKindScalarDbl) && lit.Kind() == value.Integer {
		// Float typekinds accept an integer literal; it is stored as a double.
		lit = value.NewDouble(float64(lit.Int()))
	}
	p.obj.Data = append(p.obj.Data, EncodedData{
		Name: d.Name,
		Kind: kind,
		Lit:  lit,
	})
	return nil
}

// operand resolves one instruction operand to its final encoding,
// emitting a Relocation instead of a concrete offset for external/
// undefined symbols (spec §4.6).
func (p *pass2) operand(op parser.Operand, slot int) (EncodedOperand, error) {
	if op.IsLabel {
		return p.labelOperand(op, slot)
	}
	return p.literalOperand(op), nil
}

func (p *pass2) labelOperand(op parser.Operand, slot int) (EncodedOperand, error) {
	sym, ok := p.syms.Lookup(op.Label)
	if !ok || (!sym.Defined && sym.Binding != parser.BindExtern) {
		return EncodedOperand{}, p.h.HandleError(diag.Errorf(diag.KindPass2, op.Span,
			"undefined internal reference %q", op.Label))
	}
	if !sym.Defined {
		// Extern and not defined in this unit: relocate (spec §4.6, §6
		// record 7). The payload is a placeholder the linker overwrites.
		p.obj.Relocations = append(p.obj.Relocations, Relocation{
			Section:     parser.SectionText,
			Offset:      p.textLC - 1,
			OperandSlot: slot,
			Symbol:      op.Label,
		})
		return EncodedOperand{Kind: value.KOKindInt32, Lit: value.NewInteger(0)}, nil
	}
	if sym.Type == parser.TypeFunc {
		// A function label is called by name, not position: the runtime
		// resolves the target function at load time (spec §4.6 case (b)).
		return EncodedOperand{Kind: value.KOKindStringValue, Lit: value.NewString(sym.Name)}, nil
	}
	// Any other label consumed where an integer is expected resolves to a
	// signed delta from the referencing instruction's own location counter,
	// not an absolute position (spec §4.6 case (c)).
	return EncodedOperand{Kind: value.KOKindInt32, Lit: value.NewInteger(int64(sym.Offset - p.textLC))}, nil
}

// literalOperand encodes a resolved literal per its Value kind and Wrap
// flag (spec §4.6, §3): pushv operands take the kOS *Value-wrapped
// encodings and every other instruction operand the plain ones; .data
// entries choose plain vs wrapped via their own typekind directive instead
// (see data()).
func (p *pass2) literalOperand(op parser.Operand) EncodedOperand {
	switch op.Lit.Kind() {
	case value.Null:
		return EncodedOperand{Kind: value.KOKindNull, Lit: op.Lit}
	case value.ArgMarker:
		return EncodedOperand{Kind: value.KOKindArgMarker, Lit: op.Lit}
	case value.Bool:
		if op.Wrap == value.Wrapped {
			return EncodedOperand{Kind: value.KOKindBoolValue, Lit: op.Lit}
		}
		return EncodedOperand{Kind: value.KOKindBool, Lit: op.Lit}
	case value.Integer:
		if op.Wrap == value.Wrapped {
			return EncodedOperand{Kind: value.KOKindScalarInt, Lit: op.Lit}
		}
		return narrowedInt(op.Lit.Int())
	case value.Double:
		if op.Wrap == value.Wrapped {
			return EncodedOperand{Kind: value.KOKindScalarDbl, Lit: op.Lit}
		}
		return EncodedOperand{Kind: value.KOKindDouble, Lit: op.Lit}
	case value.String:
		if op.Wrap == value.Wrapped {
			return EncodedOperand{Kind: value.KOKindStringValue, Lit: op.Lit}
		}
		return EncodedOperand{Kind: value.KOKindString, Lit: op.Lit}
	default:
		return EncodedOperand{Kind: value.KOKindNull, Lit: value.NullValue}
	}
}

// narrowedInt picks the smallest of {Byte, Int16, Int32} that preserves v
// (spec §3, §4.6; invariant in §8: "no emitted integer operand uses a
// wider tag than strictly necessary").
func narrowedInt(v int64) EncodedOperand {
	switch {
	case v >= -128 && v <= 127:
		return EncodedOperand{Kind: value.KOKindByte, Lit: value.NewInteger(v)}
	case v >= -32768 && v <= 32767:
		return EncodedOperand{Kind: value.KOKindInt16, Lit: value.NewInteger(v)}
	default:
		return EncodedOperand{Kind: value.KOKindInt32, Lit: value.NewInteger(v)}
	}
}
