package preprocess

import (
	"github.com/tidwall/btree"
	"golang.org/x/exp/constraints"
)

// macroEntry is one stored interval: the arity range [start, end] a single
// .macro overload was registered under.
type macroEntry[K constraints.Integer] struct {
	start K
	value *Macro
}

// macroRanges is an interval map keyed by arity, one per macro name,
// tracking the (possibly several) non-overlapping arity ranges a name has
// been overloaded with. Adapted from the teacher's generic interval.Map
// (itself a btree.Map[K,*entry[K,V]] keyed on constraints.Integer) down to
// just the operations spec §3 needs: overlap detection at registration
// time and intersecting-range removal for .unmacro, not the teacher's
// full interval-query API.
//
// Keys in the backing tree are range ends; entry.start carries the paired
// range start.
type macroRanges[K constraints.Integer] struct {
	tree btree.Map[K, *macroEntry[K]]
}

// overlapping returns the first registered range (if any) that intersects
// [start, end].
func (m *macroRanges[K]) overlapping(start, end K) *Macro {
	it := m.tree.Iter()
	if !it.Seek(start) {
		return nil
	}
	// it now sits at the least end >= start; that range overlaps iff its
	// start <= end.
	if it.Value().start <= end {
		return it.Value().value
	}
	return nil
}

// insert registers [start, end] -> mac. Returns the first overlapping
// range's Macro if one exists (mac is NOT inserted in that case); the
// caller is expected to turn that into a diagnostic.
func (m *macroRanges[K]) insert(start, end K, mac *Macro) *Macro {
	if existing := m.overlapping(start, end); existing != nil {
		return existing
	}
	m.tree.Set(end, &macroEntry[K]{start: start, value: mac})
	return nil
}

// lookup finds the Macro whose range contains arity, if any.
func (m *macroRanges[K]) lookup(arity K) (*Macro, bool) {
	it := m.tree.Iter()
	if !it.Seek(arity) {
		return nil, false
	}
	if it.Value().start <= arity {
		return it.Value().value, true
	}
	return nil, false
}

// removeIntersecting deletes every registered range intersecting
// [start, end] (spec §4.2: ".unmacro removes every overload whose range
// intersects the supplied range"). Returns the number removed.
func (m *macroRanges[K]) removeIntersecting(start, end K) int {
	var ends []K
	it := m.tree.Iter()
	for ok := it.First(); ok; ok = it.Next() {
		e := it.Value()
		if e.start <= end && start <= it.Key() {
			ends = append(ends, it.Key())
		}
	}
	for _, k := range ends {
		m.tree.Delete(k)
	}
	return len(ends)
}

// all returns every registered Macro, in ascending range order.
func (m *macroRanges[K]) all() []*Macro {
	var out []*Macro
	it := m.tree.Iter()
	for ok := it.First(); ok; ok = it.Next() {
		out = append(out, it.Value().value)
	}
	return out
}
