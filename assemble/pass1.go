package assemble

import (
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/parser"
)

// FirstPass walks prog in order, interning every label, data entry, and
// binding/type attribute into a SymbolTable while advancing a location
// counter (spec §4.5). Labels have already been inner/outer qualified by
// the parser; this pass only needs their final names.
func FirstPass(prog *parser.Program, h *diag.Handler) (*SymbolTable, error) {
	p := &pass1{syms: NewSymbolTable(), h: h, section: parser.SectionText, textLC: 1}
	for _, item := range prog.Items {
		if err := p.item(item); err != nil {
			return p.syms, err
		}
	}
	return p.syms, h.Error()
}

type pass1 struct {
	syms    *SymbolTable
	h       *diag.Handler
	section parser.Section
	textLC  int // 1-based, per glossary "Location Counter"
	dataOff int

	// pendingFunc is set by a `.func` attribute and consumed by the next
	// label definition (spec §3 "Function Region": .func immediately
	// precedes the label it names).
	pendingFunc bool
}

func (p *pass1) item(it parser.Item) error {
	switch {
	case it.Switch != nil:
		p.section = it.Switch.Section
	case it.Label != nil:
		return p.label(it.Label)
	case it.Instruction != nil:
		p.textLC++
	case it.Data != nil:
		return p.data(it.Data)
	case it.Attr != nil:
		return p.attr(it.Attr)
	}
	return nil
}

func (p *pass1) label(l *parser.Label) error {
	sym := p.syms.getOrCreate(l.Name)
	if sym.Defined {
		return p.h.HandleError(diag.Errorf(diag.KindPass1, l.Span, "duplicate symbol %q", l.Name))
	}
	sym.Defined = true
	sym.Section = p.section
	if p.section == parser.SectionData {
		sym.Offset = p.dataOff
	} else {
		sym.Offset = p.textLC
	}
	if p.pendingFunc {
		sym.Type = parser.TypeFunc
		p.pendingFunc = false
	} else if sym.Type == parser.TypeUnknown {
		sym.Type = parser.TypeValue
	}
	return nil
}

func (p *pass1) data(d *parser.DataEntry) error {
	sym := p.syms.getOrCreate(d.Name)
	if sym.Defined {
		return p.h.HandleError(diag.Errorf(diag.KindPass1, d.Span, "duplicate symbol %q", d.Name))
	}
	sym.Defined = true
	sym.Section = parser.SectionData
	sym.Offset = p.dataOff
	sym.Type = parser.TypeTypedData
	sym.TypeKind = d.TypeKind
	p.dataOff++
	return nil
}

func (p *pass1) attr(a *parser.Attr) error {
	if a.Func {
		// A bare .func marker carries no name of its own; it precedes the
		// label it documents, which consumes pendingFunc (see label()).
		p.pendingFunc = true
		return nil
	}
	sym := p.syms.getOrCreate(a.Name)
	if a.Binding != nil {
		if sym.bindingSet && sym.Binding != *a.Binding {
			return p.h.HandleError(diag.Errorf(diag.KindPass1, a.Span,
				"symbol %q: binding conflict (%v then %v)", a.Name, sym.Binding, *a.Binding))
		}
		sym.Binding = *a.Binding
		sym.bindingSet = true
	}
	if a.Type != nil {
		sym.Type = *a.Type
		sym.TypeKind = a.TypeKind
	}
	return nil
}
