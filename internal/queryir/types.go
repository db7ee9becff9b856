package queryir

import (
	"fmt"

	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/ir"
)

// Context marks the business area a query belongs to.
type Context string

// ContextUnknown is the context of a freshly created query.
const ContextUnknown Context = "UNKNOWN"

// Operator is a comparison operator of a Predicate.
type Operator string

const (
	OpEquals       Operator = "eq"
	OpNotEquals    Operator = "ne"
	OpContains     Operator = "contains"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpBetween      Operator = "between"
	OpGreater      Operator = "gt"
	OpLess         Operator = "lt"
	OpGreaterEqual Operator = "ge"
	OpLessEqual    Operator = "le"
	OpIsNull       Operator = "is_null"
	OpIsNotNull    Operator = "is_not_null"
)

// Shape is the form of value an operator takes.
type Shape int

const (
	ShapeScalar Shape = iota
	ShapeList
	ShapeRange
	ShapeNone
)

// Shape returns the value shape op requires.
func (op Operator) Shape() Shape {
	switch op {
	case OpIn, OpNotIn:
		return ShapeList
	case OpBetween:
		return ShapeRange
	case OpIsNull, OpIsNotNull:
		return ShapeNone
	}
	return ShapeScalar
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpIn, OpNotIn, OpBetween,
		OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

// Negate returns the complementary operator, if one exists.
// Operators without a direct complement must be negated by wrapping
// the predicate in a negated FilterGroup.
func (op Operator) Negate() (Operator, bool) {
	switch op {
	case OpEquals:
		return OpNotEquals, true
	case OpNotEquals:
		return OpEquals, true
	case OpIn:
		return OpNotIn, true
	case OpNotIn:
		return OpIn, true
	case OpIsNull:
		return OpIsNotNull, true
	case OpIsNotNull:
		return OpIsNull, true
	}
	return "", false
}

// Logic joins the operands of a FilterGroup.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Node is a sealed interface over filter tree nodes.
// Only *Predicate and *FilterGroup implement it.
type Node interface {
	filterNode() // Marker method - seals interface to this package
}

// Predicate is a single comparison of a semantic field against a value.
type Predicate struct {
	Field string
	Op    Operator
	Value ir.IRValue
}

func (*Predicate) filterNode() {}

// NewPredicate builds a predicate, rejecting values that do not match the
// operator's shape.
func NewPredicate(field string, op Operator, value ir.IRValue) (*Predicate, error) {
	if field == "" {
		return nil, contractErr("predicate needs a field")
	}
	if !op.Valid() {
		return nil, contractErr("unknown operator %q", op).WithField(field)
	}
	if err := checkShape(op, value); err != nil {
		return nil, err.WithField(field)
	}
	return &Predicate{Field: field, Op: op, Value: value}, nil
}

// MustPredicate is like NewPredicate but panics on error.
// Use only in tests or with operator/value pairs known to be valid.
func MustPredicate(field string, op Operator, value ir.IRValue) *Predicate {
	p, err := NewPredicate(field, op, value)
	if err != nil {
		panic(err)
	}
	return p
}

func checkShape(op Operator, value ir.IRValue) *errors.CompileError {
	arr, isArray := value.(ir.IRArray)
	_, isObject := value.(ir.IRObject)
	_, isNull := value.(ir.IRNull)

	switch op.Shape() {
	case ShapeNone:
		if value != nil {
			return contractErr("%s takes no value", op)
		}
	case ShapeList:
		if !isArray || len(arr) == 0 {
			return contractErr("%s needs a non-empty list", op)
		}
		for _, v := range arr {
			if !isScalar(v) {
				return contractErr("%s list items must be scalars", op)
			}
		}
	case ShapeRange:
		if !isArray || len(arr) != 2 || !isScalar(arr[0]) || !isScalar(arr[1]) {
			return contractErr("%s needs exactly two scalar bounds", op)
		}
	default:
		if value == nil || isArray || isObject || isNull {
			return contractErr("%s needs a single value", op)
		}
	}
	return nil
}

func isScalar(v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRString, ir.IRInt, ir.IRDecimal, ir.IRDate, ir.IRBool:
		return true
	}
	return false
}

func contractErr(format string, args ...any) *errors.CompileError {
	return errors.NewCompileErrorf(errors.CodeContractViolation, format, args...)
}

// FilterGroup combines predicates and child groups with one logic.
type FilterGroup struct {
	Logic      Logic
	Negated    bool
	Predicates []*Predicate
	Groups     []*FilterGroup
}

func (*FilterGroup) filterNode() {}

// NewGroup creates an empty group.
func NewGroup(logic Logic) *FilterGroup {
	return &FilterGroup{Logic: logic}
}

// Add appends predicates and returns the group.
func (g *FilterGroup) Add(ps ...*Predicate) *FilterGroup {
	g.Predicates = append(g.Predicates, ps...)
	return g
}

// AddGroup appends child groups and returns the group.
func (g *FilterGroup) AddGroup(cs ...*FilterGroup) *FilterGroup {
	g.Groups = append(g.Groups, cs...)
	return g
}

// AddNode appends a node of either kind.
func (g *FilterGroup) AddNode(n Node) *FilterGroup {
	switch v := n.(type) {
	case *Predicate:
		return g.Add(v)
	case *FilterGroup:
		return g.AddGroup(v)
	}
	return g
}

// Operands returns predicates followed by child groups, the order in
// which they are rendered.
func (g *FilterGroup) Operands() []Node {
	out := make([]Node, 0, len(g.Predicates)+len(g.Groups))
	for _, p := range g.Predicates {
		out = append(out, p)
	}
	for _, c := range g.Groups {
		out = append(out, c)
	}
	return out
}

// IsEmpty reports whether the group contributes no condition.
func (g *FilterGroup) IsEmpty() bool {
	if g == nil {
		return true
	}
	if len(g.Predicates) > 0 {
		return false
	}
	for _, c := range g.Groups {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Projection selects or excludes one output field.
type Projection struct {
	Field   string
	Exclude bool

	// Order is the user's explicit position hint (1-based); 0 means none.
	Order int
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction Direction
}

// QueryIR is the extracted, renderer-independent form of a request.
type QueryIR struct {
	Context     Context
	Report      string
	Filters     []*FilterGroup
	Projections []Projection
	Sorts       []Sort

	// Limit caps the row count; 0 means unlimited.
	Limit int
}

// New returns an empty query with context UNKNOWN and an empty main group.
func New() *QueryIR {
	return &QueryIR{
		Context: ContextUnknown,
		Filters: []*FilterGroup{NewGroup(LogicAnd)},
	}
}

// Main returns the main filter group, creating it if needed.
func (q *QueryIR) Main() *FilterGroup {
	if len(q.Filters) == 0 {
		q.Filters = append(q.Filters, NewGroup(LogicAnd))
	}
	return q.Filters[0]
}

// AddProjection records a projection. A repeated field keeps its first
// entry, except that an exclusion always wins over an inclusion.
func (q *QueryIR) AddProjection(p Projection) {
	for i, existing := range q.Projections {
		if existing.Field != p.Field {
			continue
		}
		if p.Exclude && !existing.Exclude {
			q.Projections[i] = p
		}
		return
	}
	q.Projections = append(q.Projections, p)
}

// AddSort appends a sort key unless the field is already sorted.
func (q *QueryIR) AddSort(s Sort) {
	for _, existing := range q.Sorts {
		if existing.Field == s.Field {
			return
		}
	}
	q.Sorts = append(q.Sorts, s)
}

// Fields returns every semantic field the query references, in first-seen
// order: filters, then projections, then sorts.
func (q *QueryIR) Fields() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	var walk func(g *FilterGroup)
	walk = func(g *FilterGroup) {
		for _, p := range g.Predicates {
			add(p.Field)
		}
		for _, c := range g.Groups {
			walk(c)
		}
	}
	for _, g := range q.Filters {
		walk(g)
	}
	for _, p := range q.Projections {
		add(p.Field)
	}
	for _, s := range q.Sorts {
		add(s.Field)
	}
	return out
}

// String renders the filter tree in a compact, human-readable form.
func (g *FilterGroup) String() string {
	parts := make([]string, 0, len(g.Predicates)+len(g.Groups))
	for _, n := range g.Operands() {
		switch v := n.(type) {
		case *Predicate:
			parts = append(parts, v.String())
		case *FilterGroup:
			parts = append(parts, v.String())
		}
	}
	s := "("
	for i, p := range parts {
		if i > 0 {
			s += " " + string(g.Logic) + " "
		}
		s += p
	}
	s += ")"
	if g.Negated {
		s = "NOT " + s
	}
	return s
}

func (p *Predicate) String() string {
	if p.Op.Shape() == ShapeNone {
		return fmt.Sprintf("%s %s", p.Field, p.Op)
	}
	return fmt.Sprintf("%s %s [%s]", p.Field, p.Op, ir.Text(p.Value))
}
