package queryir

import (
	"github.com/roach88/nlq/internal/ir"
)

// Canonical returns the query as an IRObject suitable for canonical JSON
// and fingerprinting. Empty sections are omitted so that equal queries
// always produce byte-identical output.
func (q *QueryIR) Canonical() ir.IRObject {
	obj := ir.NewIRObjectFromPairs(
		ir.O("context", ir.IRString(q.Context)),
		ir.O("report", ir.IRString(q.Report)),
	)

	var filters ir.IRArray
	for _, g := range q.Filters {
		if g.IsEmpty() {
			continue
		}
		filters = append(filters, canonicalGroup(g))
	}
	if len(filters) > 0 {
		obj["filters"] = filters
	}

	if len(q.Projections) > 0 {
		projs := make(ir.IRArray, len(q.Projections))
		for i, p := range q.Projections {
			o := ir.NewIRObjectFromPairs(ir.O("field", ir.IRString(p.Field)))
			if p.Exclude {
				o["exclude"] = ir.IRBool(true)
			}
			if p.Order > 0 {
				o["order"] = ir.IRInt(p.Order)
			}
			projs[i] = o
		}
		obj["projections"] = projs
	}

	if len(q.Sorts) > 0 {
		sorts := make(ir.IRArray, len(q.Sorts))
		for i, s := range q.Sorts {
			sorts[i] = ir.NewIRObjectFromPairs(
				ir.O("field", ir.IRString(s.Field)),
				ir.O("direction", ir.IRString(s.Direction)),
			)
		}
		obj["sorts"] = sorts
	}

	if q.Limit > 0 {
		obj["limit"] = ir.IRInt(q.Limit)
	}
	return obj
}

func canonicalGroup(g *FilterGroup) ir.IRObject {
	var preds ir.IRArray
	for _, p := range g.Predicates {
		o := ir.NewIRObjectFromPairs(
			ir.O("field", ir.IRString(p.Field)),
			ir.O("op", ir.IRString(p.Op)),
		)
		if p.Value != nil {
			o["value"] = p.Value
		}
		preds = append(preds, o)
	}
	var groups ir.IRArray
	for _, c := range g.Groups {
		if c.IsEmpty() {
			continue
		}
		groups = append(groups, canonicalGroup(c))
	}

	obj := ir.NewIRObjectFromPairs(ir.O("logic", ir.IRString(g.Logic)))
	if g.Negated {
		obj["negated"] = ir.IRBool(true)
	}
	if len(preds) > 0 {
		obj["predicates"] = preds
	}
	if len(groups) > 0 {
		obj["groups"] = groups
	}
	return obj
}
