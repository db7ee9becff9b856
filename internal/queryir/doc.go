// Package queryir provides the intermediate representation a domain expert
// extracts from a request before any SQL exists.
//
// ARCHITECTURE:
//
//	[request text] → [expert extraction] → [QueryIR] → [querysql renderer] → SQL + params
//
// A QueryIR is plain data: the report it targets, a filter tree, the
// requested projections, the ordering and an optional row limit. Field
// names are semantic keys (e.g. "vsn"), never database columns; the
// renderer resolves them against the selected report template.
//
// FILTER TREE:
//
// Filters is a list of FilterGroups combined with AND; Filters[0] is the
// main group. A FilterGroup holds predicates first, then child groups,
// joined by the group's logic and optionally negated as a whole.
// Node is a sealed sum type over *Predicate and *FilterGroup; renderers
// switch on it exhaustively:
//
//	switch n := node.(type) {
//	case *Predicate:
//	    // comparison
//	case *FilterGroup:
//	    // nested group
//	}
//
// VALUE SHAPES:
//
// Every operator fixes the shape of its value: a scalar ir.IRValue, an
// ir.IRArray list (in, not_in), a two-element ir.IRArray (between) or
// no value (is_null, is_not_null). NewPredicate rejects mismatches, so a
// tree built through the constructors never carries an ill-shaped value.
package queryir
