package preprocess

import "github.com/kerbalasm/kasm/token"

// Macro is a multi-line .macro/.endmacro definition (spec §3): overloadable
// by arity *range* rather than exact arity. MinArity <= MaxArity; the
// number of Defaults equals MaxArity - MinArity, one default token list per
// optional trailing argument, filled in left-to-right when a call site
// supplies fewer than MaxArity actuals.
type Macro struct {
	Name     string
	MinArity int
	MaxArity int
	Defaults [][]token.Token
	Body     []token.Token
}

// macroTables stores every name's set of registered, non-overlapping arity
// ranges.
type macroTables struct {
	byName map[string]*macroRanges[int]
}

func newMacroTables() *macroTables {
	return &macroTables{byName: map[string]*macroRanges[int]{}}
}

// register inserts mac under its declared range. Returns the conflicting
// Macro if the range overlaps an existing registration for this name (spec
// §8: "macro arity ranges are disjoint after any successful registration");
// mac is not stored in that case.
func (t *macroTables) register(mac *Macro) *Macro {
	r := t.byName[mac.Name]
	if r == nil {
		r = &macroRanges[int]{}
		t.byName[mac.Name] = r
	}
	return r.insert(mac.MinArity, mac.MaxArity, mac)
}

// lookup finds the Macro whose range contains arity, and whether the name
// is known at all (any range), mirroring definitionTable.lookup.
func (t *macroTables) lookup(name string, arity int) (mac *Macro, knownName bool) {
	r, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	m, found := r.lookup(arity)
	if !found {
		return nil, true
	}
	return m, true
}

// unmacro removes every overload of name whose range intersects
// [min, max] (spec §4.2). Returns the number removed; 0 is a silent no-op,
// matching .undef's documented behavior for an absent overload.
func (t *macroTables) unmacro(name string, min, max int) int {
	r, ok := t.byName[name]
	if !ok {
		return 0
	}
	n := r.removeIntersecting(min, max)
	if len(r.all()) == 0 {
		delete(t.byName, name)
	}
	return n
}
