package parser

import (
	"strings"

	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/expr"
	"github.com/kerbalasm/kasm/token"
	"github.com/kerbalasm/kasm/value"
)

// Parser consumes preprocessed tokens and produces a Program (spec §4.4).
// Inner-label qualification (spec §3, §4.5) is resolved here rather than
// in a later pass, matching original_source/src/parser/functions.rs, where
// parent-label tracking happens during the same walk that recognizes
// instructions and labels.
type Parser struct {
	toks []token.Token
	pos  int
	h    *diag.Handler
	defs expr.Definitions

	section   Section
	lastOuter string
	haveOuter bool

	items []Item
}

// New builds a Parser over toks (the preprocessor's output). defs resolves
// zero-arity single-line definitions referenced inside operand
// expressions; it may be nil if none are expected to appear (tests only).
func New(toks []token.Token, defs expr.Definitions, h *diag.Handler) *Parser {
	return &Parser{toks: toks, defs: defs, h: h, section: SectionText}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) errorf(t token.Token, format string, args ...any) {
	p.h.HandleError(diag.Errorf(diag.KindParse, t.Span, format, args...))
}

// Parse runs the parser to completion, returning the parsed Program.
func (p *Parser) Parse() (*Program, error) {
	for p.cur().Kind != token.EOF {
		if err := p.h.Error(); err != nil {
			return &Program{Items: p.items}, err
		}
		if p.cur().Kind == token.EOL {
			p.advance()
			continue
		}
		p.statement()
	}
	return &Program{Items: p.items}, p.h.Error()
}

// statement parses one logical line.
func (p *Parser) statement() {
	t := p.cur()
	switch t.Kind {
	case token.Label:
		p.advance()
		p.lastOuter = t.Text
		p.haveOuter = true
		p.items = append(p.items, labelItem(&Label{Name: t.Text, Span: t.Span}))
		p.endOfStatement(t)
	case token.InnerLabelDef:
		p.advance()
		name := p.qualify(t)
		p.items = append(p.items, labelItem(&Label{Name: name, Inner: true, Span: t.Span}))
		p.endOfStatement(t)
	case token.Directive:
		p.directiveStatement(t)
	case token.Ident:
		p.instructionOrDataStatement(t)
	default:
		p.errorf(t, "unexpected token %q", t.Text)
		p.skipStatement()
	}
}

// qualify joins an inner label's bare spelling to the current outer label
// (spec §3: "<outer>.<inner>"), erroring if no outer label has been seen
// yet in this unit (spec §7: "inner label without outer").
func (p *Parser) qualify(t token.Token) string {
	name := strings.TrimPrefix(t.Text, ".")
	if !p.haveOuter {
		p.errorf(t, "inner label %q has no preceding outer label", t.Text)
		return name
	}
	return p.lastOuter + "." + name
}

func (p *Parser) endOfStatement(t token.Token) {
	if p.cur().Kind != token.EOL && p.cur().Kind != token.EOF {
		p.errorf(p.cur(), "unexpected token %q after statement", p.cur().Text)
		p.skipStatement()
		return
	}
	if p.cur().Kind == token.EOL {
		p.advance()
	}
}

func (p *Parser) skipStatement() {
	for p.cur().Kind != token.EOL && p.cur().Kind != token.EOF {
		p.advance()
	}
	if p.cur().Kind == token.EOL {
		p.advance()
	}
}

func (p *Parser) directiveStatement(t token.Token) {
	name := strings.ToLower(strings.TrimPrefix(t.Text, "."))
	switch name {
	case "section":
		p.advance()
		p.sectionDirective(t)
	case "extern":
		p.advance()
		p.bindingDirective(t, BindExtern)
	case "global":
		p.advance()
		p.bindingDirective(t, BindGlobal)
	case "local":
		p.advance()
		p.bindingDirective(t, BindLocal)
	case "func":
		p.advance()
		p.funcDirective(t)
	case "type":
		p.advance()
		p.typeDirective(t)
	default:
		p.errorf(t, "unknown directive %q", t.Text)
		p.skipStatement()
	}
}

func (p *Parser) sectionDirective(t token.Token) {
	target := p.cur()
	switch target.Kind {
	case token.Directive:
		switch strings.ToLower(strings.TrimPrefix(target.Text, ".")) {
		case "text":
			p.advance()
			p.section = SectionText
		case "data":
			p.advance()
			p.section = SectionData
		default:
			p.errorf(target, ".section expects .text or .data")
		}
	default:
		p.errorf(target, ".section expects .text or .data")
	}
	p.items = append(p.items, switchItem(&SectionSwitch{Section: p.section, Span: t.Span}))
	p.endOfStatement(t)
}

func (p *Parser) bindingDirective(t token.Token, binding Binding) {
	nameTok := p.cur()
	if nameTok.Kind != token.Ident {
		p.errorf(nameTok, "expected a symbol name")
		p.skipStatement()
		return
	}
	p.advance()
	b := binding
	p.items = append(p.items, attrItem(&Attr{Name: nameTok.Text, Binding: &b, Span: t.Span}))
	p.endOfStatement(t)
}

func (p *Parser) funcDirective(t token.Token) {
	p.items = append(p.items, attrItem(&Attr{Func: true, Span: t.Span}))
	p.endOfStatement(t)
}

func (p *Parser) typeDirective(t token.Token) {
	kindTok := p.cur()
	kind, ok := typeKindFromDirective(kindTok)
	if !ok {
		p.errorf(kindTok, "expected a .data typekind after .type")
		p.skipStatement()
		return
	}
	p.advance()
	ty := TypeTypedData
	nameTok := p.cur()
	if nameTok.Kind != token.Ident {
		p.errorf(nameTok, "expected a symbol name")
		p.skipStatement()
		return
	}
	p.advance()
	p.items = append(p.items, attrItem(&Attr{Name: nameTok.Text, Type: &ty, TypeKind: kind, Span: t.Span}))
	p.endOfStatement(t)
}

func typeKindFromDirective(t token.Token) (value.TypeKind, bool) {
	if t.Kind != token.Directive {
		return 0, false
	}
	switch strings.ToLower(strings.TrimPrefix(t.Text, ".")) {
	case "b":
		return value.TKByte, true
	case "i16":
		return value.TKInt16, true
	case "i32":
		return value.TKInt32, true
	case "f32":
		return value.TKFloat32, true
	case "f64v":
		return value.TKFloat64Value, true
	case "s":
		return value.TKString, true
	case "sv":
		return value.TKStringValue, true
	case "bl":
		return value.TKBool, true
	case "bv":
		return value.TKBoolValue, true
	case "si":
		return value.TKScalarInt, true
	case "sd":
		return value.TKScalarDouble, true
	default:
		return 0, false
	}
}

// instructionOrDataStatement disambiguates `MNEMONIC operand, ...` from
// `NAME .<typekind> <literal>` (only valid inside .section .data) — both
// start with a bare identifier.
func (p *Parser) instructionOrDataStatement(t token.Token) {
	if p.section == SectionData {
		if next := p.peekAt(1); next.Kind == token.Directive {
			if _, ok := typeKindFromDirective(next); ok {
				p.dataStatement(t)
				return
			}
		}
	}
	p.instructionStatement(t)
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos+n]
}

func (p *Parser) dataStatement(t token.Token) {
	p.advance() // name
	kindTok := p.advance()
	kind, _ := typeKindFromDirective(kindTok)
	operand := p.operand()
	if operand.IsLabel {
		p.errorf(kindTok, "data entry %q: literal required, got a label reference", t.Text)
	} else if !literalMatchesTypeKind(operand.Lit, kind) {
		p.errorf(kindTok, "data entry %q: literal kind does not match declared type %s", t.Text, kindTok.Text)
	}
	p.items = append(p.items, dataItem(&DataEntry{Name: t.Text, TypeKind: kind, Lit: operand.Lit, Span: t.Span}))
	p.endOfStatement(t)
}

func literalMatchesTypeKind(v value.Value, k value.TypeKind) bool {
	switch k {
	case value.TKByte, value.TKInt16, value.TKInt32, value.TKScalarInt:
		return v.Kind() == value.Integer
	case value.TKFloat32, value.TKFloat64Value, value.TKScalarDouble:
		return v.Kind() == value.Double || v.Kind() == value.Integer
	case value.TKString, value.TKStringValue:
		return v.Kind() == value.String
	case value.TKBool, value.TKBoolValue:
		return v.Kind() == value.Bool
	default:
		return false
	}
}

// instructionStatement parses `MNEMONIC [operand, ...]`, resolving the
// mnemonic against instructionTable and checking operand arity/kind (spec
// §4.4).
func (p *Parser) instructionStatement(t token.Token) {
	p.advance()
	instr, ok := lookupInstr(t.Text)
	if !ok {
		p.errorf(t, "unknown mnemonic %q", t.Text)
		p.skipStatement()
		return
	}
	var operands []Operand
	for p.cur().Kind != token.EOL && p.cur().Kind != token.EOF {
		operands = append(operands, p.operand())
		if p.cur().Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	if t.Text == "pushv" {
		for i := range operands {
			operands[i].Wrap = value.Wrapped
		}
	}
	sig := matchSignature(instr, operands)
	if sig == nil {
		p.errorf(t, "%q: no overload accepts %d operand(s) of the given kind(s)", t.Text, len(operands))
	}
	p.items = append(p.items, instrItem(&Instruction{Mnemonic: t.Text, Opcode: instr.Opcode, Operands: operands, Span: t.Span}))
	p.endOfStatement(t)
}

// matchSignature finds the signature matching operands' count and, for
// each non-label operand, whether its literal kind (in plain or wrapped
// form) is accepted by that slot. A label operand is accepted by any slot
// that isn't purely Null/Bool/ArgMarker (resolved for real in pass 2).
func matchSignature(instr *Instr, operands []Operand) Signature {
	for _, sig := range instr.Signatures {
		if len(sig) != len(operands) {
			continue
		}
		ok := true
		for i, slot := range sig {
			if !slotAccepts(slot, operands[i]) {
				ok = false
				break
			}
		}
		if ok {
			return sig
		}
	}
	return nil
}

func slotAccepts(slot Slot, op Operand) bool {
	if op.IsLabel {
		return slot.accepts(OKStringValue) || slot.accepts(OKInt16) || slot.accepts(OKInt32) || slot.accepts(OKByte)
	}
	k := operandKindOf(op)
	if slot.accepts(k) {
		return true
	}
	// A narrowed plain integer also fits any wider plain-integer slot.
	switch k {
	case OKByte:
		return slot.accepts(OKInt16) || slot.accepts(OKInt32)
	case OKInt16:
		return slot.accepts(OKInt32)
	}
	return false
}

// operandKindOf maps a resolved literal + wrap flag to the OperandKind the
// instruction table checks against.
func operandKindOf(op Operand) OperandKind {
	switch op.Lit.Kind() {
	case value.Null:
		return OKNull
	case value.ArgMarker:
		return OKArgMarker
	case value.Bool:
		if op.Wrap == value.Wrapped {
			return OKBoolValue
		}
		return OKBool
	case value.Integer:
		if op.Wrap == value.Wrapped {
			return OKScalarInt
		}
		return narrowIntKind(op.Lit.Int())
	case value.Double:
		if op.Wrap == value.Wrapped {
			return OKScalarDouble
		}
		return OKDouble
	case value.String:
		return OKStringValue
	default:
		return OKNull
	}
}

func narrowIntKind(v int64) OperandKind {
	switch {
	case v >= -128 && v <= 127:
		return OKByte
	case v >= -32768 && v <= 32767:
		return OKInt16
	default:
		return OKInt32
	}
}

// operand parses one operand: a literal (possibly pushv-wrapped via a
// leading directive marker is not used — wrapping is selected by the
// mnemonic itself, see instructionStatement), a label reference, or a constant
// expression evaluated immediately (spec §4.4, grounded on
// original_source/src/parser/pass1.rs's read_and_verify_operands).
func (p *Parser) operand() Operand {
	t := p.cur()
	switch t.Kind {
	case token.String:
		p.advance()
		return Operand{Lit: t.Lit, Span: t.Span}
	case token.At:
		p.advance()
		return Operand{Lit: value.ArgMark, Span: t.Span}
	case token.Hash:
		p.advance()
		return Operand{Lit: value.NullValue, Span: t.Span}
	case token.InnerLabel:
		p.advance()
		return Operand{IsLabel: true, Label: p.qualify(t), Span: t.Span}
	case token.Ident:
		// By the time the parser sees a bare identifier here, the
		// preprocessor has already expanded every .define/.macro call
		// site; true/false/null literals are lexed to their own token
		// kinds, not Ident. So any remaining Ident operand is a label
		// reference (original_source/src/parser/pass1.rs:
		// read_and_verify_operands treats "Identifier, not true/false"
		// as a label to resolve in pass 2).
		p.advance()
		return Operand{IsLabel: true, Label: t.Text, Span: t.Span}
	default:
		return p.exprOperand()
	}
}

// exprOperand evaluates a constant expression starting at the current
// token through the next comma/EOL/EOF at paren-depth 0.
func (p *Parser) exprOperand() Operand {
	start := p.pos
	depth := 0
	for {
		t := p.cur()
		if t.Kind == token.EOF || (depth == 0 && (t.Kind == token.EOL || t.Kind == token.Comma)) {
			break
		}
		if t.Kind == token.LParen {
			depth++
		}
		if t.Kind == token.RParen {
			depth--
		}
		p.advance()
	}
	sub := p.toks[start:p.pos]
	if len(sub) == 0 {
		p.errorf(p.cur(), "expected an operand")
		return Operand{Lit: value.NullValue}
	}
	v, err := expr.Eval(sub, p.defs, p.h)
	if err != nil {
		return Operand{Lit: value.NullValue, Span: sub[0].Span}
	}
	return Operand{Lit: v, Span: sub[0].Span}
}
