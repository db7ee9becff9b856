package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists structural problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each violation found, in traversal order.
	Problems []string
}

// String joins the problems for logging.
func (r ValidationResult) String() string {
	if r.Valid {
		return "valid"
	}
	return strings.Join(r.Problems, "; ")
}

// Validate checks a query for structural soundness independent of any
// template:
//  1. A main filter group exists
//  2. Every predicate has a field, a known operator and a well-shaped value
//  3. Groups have a logic of AND or OR
//  4. A field is not both included and excluded
//  5. Sort directions are ASC or DESC and the limit is not negative
//
// Validate is a pure function with no side effects.
func Validate(q *QueryIR) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(q)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q *QueryIR) {
	if q == nil {
		v.addProblem("query is nil")
		return
	}
	if len(q.Filters) == 0 {
		v.addProblem("query has no main filter group")
	}
	for i, g := range q.Filters {
		v.validateGroup(g, fmt.Sprintf("filters[%d]", i))
	}

	mode := make(map[string]bool)
	for i, p := range q.Projections {
		if p.Field == "" {
			v.addProblem("projections[%d]: empty field", i)
			continue
		}
		if exclude, seen := mode[p.Field]; seen && exclude != p.Exclude {
			v.addProblem("projections[%d]: field %q both included and excluded", i, p.Field)
		}
		mode[p.Field] = p.Exclude
		if p.Order < 0 {
			v.addProblem("projections[%d]: negative order", i)
		}
	}

	for i, s := range q.Sorts {
		if s.Field == "" {
			v.addProblem("sorts[%d]: empty field", i)
		}
		if s.Direction != Asc && s.Direction != Desc {
			v.addProblem("sorts[%d]: unknown direction %q", i, s.Direction)
		}
	}

	if q.Limit < 0 {
		v.addProblem("limit must not be negative")
	}
}

func (v *validator) validateGroup(g *FilterGroup, path string) {
	if g == nil {
		v.addProblem("%s: nil group", path)
		return
	}
	if g.Logic != LogicAnd && g.Logic != LogicOr {
		v.addProblem("%s: unknown logic %q", path, g.Logic)
	}
	for i, p := range g.Predicates {
		v.validatePredicate(p, fmt.Sprintf("%s.predicates[%d]", path, i))
	}
	for i, c := range g.Groups {
		v.validateGroup(c, fmt.Sprintf("%s.groups[%d]", path, i))
	}
}

func (v *validator) validatePredicate(p *Predicate, path string) {
	if p == nil {
		v.addProblem("%s: nil predicate", path)
		return
	}
	if p.Field == "" {
		v.addProblem("%s: empty field", path)
	}
	if !p.Op.Valid() {
		v.addProblem("%s: unknown operator %q", path, p.Op)
		return
	}
	if err := checkShape(p.Op, p.Value); err != nil {
		v.addProblem("%s: %s", path, err.Message)
	}
}
