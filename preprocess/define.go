package preprocess

import (
	"github.com/kerbalasm/kasm/diag"
	"github.com/kerbalasm/kasm/expr"
	"github.com/kerbalasm/kasm/token"
	"github.com/kerbalasm/kasm/value"
)

// Definition is a single-line .define overload (spec §3): a name, its
// parameter names, and a replacement token list referencing them by name.
type Definition struct {
	Name   string
	Params []string
	Body   []token.Token
}

// Arity reports the definition's declared argument count.
func (d *Definition) Arity() int { return len(d.Params) }

// definitionTable stores every .define overload, keyed by (name, arity) as
// required by spec §3/§9 ("a shared symbol-like abstraction over both
// [definitions and macros] is unhelpful; keep two tables").
type definitionTable struct {
	byName map[string]map[int]*Definition
}

func newDefinitionTable() *definitionTable {
	return &definitionTable{byName: map[string]map[int]*Definition{}}
}

func (t *definitionTable) define(d *Definition) {
	m := t.byName[d.Name]
	if m == nil {
		m = map[int]*Definition{}
		t.byName[d.Name] = m
	}
	m[d.Arity()] = d
}

// undef removes the overload at the given arity. Returns false if no such
// overload existed (spec §4.2: "absent overload is silently a no-op").
func (t *definitionTable) undef(name string, arity int) bool {
	m := t.byName[name]
	if m == nil {
		return false
	}
	if _, ok := m[arity]; !ok {
		return false
	}
	delete(m, arity)
	if len(m) == 0 {
		delete(t.byName, name)
	}
	return true
}

// lookup returns the overload at name/arity, and whether the name is
// defined at all (at any arity) so callers can distinguish "not a
// definition at all" (pass the identifier through untouched) from "wrong
// arity for an existing definition" (an error).
func (t *definitionTable) lookup(name string, arity int) (def *Definition, knownName bool) {
	m, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return m[arity], true
}

var _ expr.Definitions = (*definitionTable)(nil)

// ResolveConstant implements expr.Definitions: it resolves a bare
// zero-arity identifier to a constant value by evaluating its replacement
// body as an expression (spec §4.3: "identifier resolving to a single-line
// definition of arity 0, recursively evaluated at use site").
func (t *definitionTable) ResolveConstant(name string) (value.Value, bool) {
	d, ok := t.lookup(name, 0)
	if !ok || d == nil {
		return value.Value{}, false
	}
	scratch := diag.NewHandler(nil)
	v, err := expr.Eval(d.Body, t, scratch)
	if err != nil {
		return value.Value{}, false
	}
	return v, true
}
