package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/ir"
	"github.com/roach88/nlq/internal/queryir"
)

// Statement is a rendered, parameterized SQL statement.
//
// CRITICAL: user values only ever appear in Params, never in SQL.
type Statement struct {
	SQL    string
	Params []any
}

// Canonical returns the statement as an IRObject for fingerprinting.
func (s *Statement) Canonical() (ir.IRObject, error) {
	params := make(ir.IRArray, len(s.Params))
	for i, p := range s.Params {
		switch v := p.(type) {
		case string:
			params[i] = ir.IRString(v)
		case int64:
			params[i] = ir.IRInt(v)
		case bool:
			params[i] = ir.IRBool(v)
		default:
			return nil, errors.Newf("param %d: unsupported type %T", i+1, p)
		}
	}
	return ir.NewIRObjectFromPairs(
		ir.O("sql", ir.IRString(s.SQL)),
		ir.O("params", params),
	), nil
}

// Renderer turns a QueryIR into SQL by filling a template skeleton.
// A Renderer is stateless and safe for concurrent use.
type Renderer struct {
	dialect *Dialect
}

// NewRenderer creates a renderer for d; nil selects MSSQL.
func NewRenderer(d *Dialect) *Renderer {
	if d == nil {
		d = MSSQL
	}
	return &Renderer{dialect: d}
}

// Dialect returns the renderer's dialect.
func (r *Renderer) Dialect() *Dialect { return r.dialect }

// Render fills t's skeleton from q. Parameters are numbered in the order
// their placeholders appear in the final text. Lines left blank by empty
// slots are dropped.
func (r *Renderer) Render(q *queryir.QueryIR, t *catalog.ReportTemplate) (*Statement, error) {
	if q == nil || t == nil {
		return nil, errors.NewCompileError(errors.CodeContractViolation, "render needs a query and a template")
	}
	if result := queryir.Validate(q); !result.Valid {
		return nil, errors.NewCompileErrorf(errors.CodeContractViolation, "invalid query: %s", result)
	}

	st := &renderState{dialect: r.dialect, tmpl: t}
	var sb strings.Builder
	for _, seg := range t.Segments() {
		if seg.IsLiteral() {
			sb.WriteString(seg.Literal)
			continue
		}
		frag, err := st.fill(seg, q)
		if err != nil {
			return nil, err
		}
		sb.WriteString(frag)
	}

	return &Statement{SQL: dropBlankLines(sb.String()), Params: st.params}, nil
}

// renderState carries the parameter list while one statement is rendered.
type renderState struct {
	dialect *Dialect
	tmpl    *catalog.ReportTemplate
	params  []any
}

// bind appends a parameter and returns its placeholder.
func (st *renderState) bind(v any) string {
	st.params = append(st.params, v)
	return st.dialect.Placeholder(len(st.params))
}

func (st *renderState) bindValue(field string, v ir.IRValue) (string, error) {
	p, err := ir.Param(v)
	if err != nil {
		return "", errors.NewCompileErrorf(errors.CodeMalformedValue, "cannot bind value: %v", err).WithField(field)
	}
	return st.bind(p), nil
}

func (st *renderState) column(field string) (*catalog.ColumnSpec, error) {
	c, ok := st.tmpl.Column(field)
	if !ok {
		return nil, errors.NewCompileErrorf(errors.CodeUnresolvedField,
			"field is not part of report %s", st.tmpl.Name()).WithField(field)
	}
	return c, nil
}

func (st *renderState) fill(seg catalog.Segment, q *queryir.QueryIR) (string, error) {
	switch seg.Kind {
	case catalog.PlaceholderTop:
		if st.dialect.Limit == LimitTop && q.Limit > 0 {
			return "TOP (" + st.bind(int64(q.Limit)) + ") ", nil
		}
		return "", nil
	case catalog.PlaceholderLimit:
		if st.dialect.Limit == LimitClause && q.Limit > 0 {
			return "LIMIT " + st.bind(int64(q.Limit)), nil
		}
		return "", nil
	case catalog.PlaceholderColumns:
		return st.columns(q)
	case catalog.PlaceholderWhere, catalog.PlaceholderAndWhere:
		cond, err := st.filters(q.Filters)
		if err != nil || cond == "" {
			return "", err
		}
		if seg.Kind == catalog.PlaceholderWhere {
			return "WHERE " + cond, nil
		}
		return "AND " + cond, nil
	case catalog.PlaceholderOrder:
		return st.order(q)
	case catalog.PlaceholderColumn:
		c, err := st.column(seg.Arg)
		if err != nil {
			return "", err
		}
		return c.Expression(), nil
	}
	return "", errors.NewCompileErrorf(errors.CodeContractViolation, "unknown placeholder %q", seg.Kind)
}

// columns resolves the projection list. With explicit inclusions only
// those fields are selected: hinted ones first by hint, then the rest in
// template order. Without inclusions every column is selected. Exclusions
// always apply.
func (st *renderState) columns(q *queryir.QueryIR) (string, error) {
	excluded := make(map[string]bool)
	included := make(map[string]int)
	for _, p := range q.Projections {
		if _, err := st.column(p.Field); err != nil {
			return "", err
		}
		if p.Exclude {
			excluded[p.Field] = true
		} else {
			included[p.Field] = p.Order
		}
	}

	var selected []*catalog.ColumnSpec
	if len(included) == 0 {
		for _, c := range st.tmpl.Columns() {
			if !excluded[c.Key()] {
				selected = append(selected, c)
			}
		}
	} else {
		var hinted, rest []*catalog.ColumnSpec
		for _, c := range st.tmpl.Columns() {
			order, ok := included[c.Key()]
			switch {
			case !ok || excluded[c.Key()]:
			case order > 0:
				hinted = append(hinted, c)
			default:
				rest = append(rest, c)
			}
		}
		slices.SortStableFunc(hinted, func(a, b *catalog.ColumnSpec) int {
			return included[a.Key()] - included[b.Key()]
		})
		selected = append(hinted, rest...)
	}

	if len(selected) == 0 {
		return "", errors.NewCompileErrorf(errors.CodeUnresolvedField,
			"no columns left to select in report %s", st.tmpl.Name())
	}
	defs := make([]string, len(selected))
	for i, c := range selected {
		defs[i] = c.SQLDefinition()
	}
	return strings.Join(defs, ", "), nil
}

// filters renders the top-level groups joined by AND.
func (st *renderState) filters(groups []*queryir.FilterGroup) (string, error) {
	var parts []string
	for _, g := range groups {
		s, err := st.group(g)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " AND "), nil
}

// group renders "(a AND b)" or "NOT (a OR b)". Empty groups render as "".
func (st *renderState) group(g *queryir.FilterGroup) (string, error) {
	if g.IsEmpty() {
		return "", nil
	}
	var operands []string
	for _, n := range g.Operands() {
		var s string
		var err error
		switch v := n.(type) {
		case *queryir.Predicate:
			s, err = st.predicate(v)
		case *queryir.FilterGroup:
			s, err = st.group(v)
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			operands = append(operands, s)
		}
	}
	out := "(" + strings.Join(operands, " "+string(g.Logic)+" ") + ")"
	if g.Negated {
		out = "NOT " + out
	}
	return out, nil
}

var comparison = map[queryir.Operator]string{
	queryir.OpEquals:       "=",
	queryir.OpNotEquals:    "<>",
	queryir.OpGreater:      ">",
	queryir.OpLess:         "<",
	queryir.OpGreaterEqual: ">=",
	queryir.OpLessEqual:    "<=",
}

func (st *renderState) predicate(p *queryir.Predicate) (string, error) {
	c, err := st.column(p.Field)
	if err != nil {
		return "", err
	}
	expr := c.Expression()

	if sym, ok := comparison[p.Op]; ok {
		ph, err := st.bindValue(p.Field, p.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", expr, sym, ph), nil
	}

	switch p.Op {
	case queryir.OpContains:
		ph := st.bind("%" + escapeLikePattern(ir.Text(p.Value)) + "%")
		return fmt.Sprintf(`%s %s %s ESCAPE '\'`, expr, st.dialect.ContainsOp, ph), nil
	case queryir.OpIn, queryir.OpNotIn:
		items := p.Value.(ir.IRArray)
		phs := make([]string, len(items))
		for i, v := range items {
			ph, err := st.bindValue(p.Field, v)
			if err != nil {
				return "", err
			}
			phs[i] = ph
		}
		kw := "IN"
		if p.Op == queryir.OpNotIn {
			kw = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", expr, kw, strings.Join(phs, ", ")), nil
	case queryir.OpBetween:
		bounds := p.Value.(ir.IRArray)
		lo, err := st.bindValue(p.Field, bounds[0])
		if err != nil {
			return "", err
		}
		hi, err := st.bindValue(p.Field, bounds[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", expr, lo, hi), nil
	case queryir.OpIsNull:
		return expr + " IS NULL", nil
	case queryir.OpIsNotNull:
		return expr + " IS NOT NULL", nil
	}
	return "", errors.NewCompileErrorf(errors.CodeContractViolation, "unsupported operator %q", p.Op).WithField(p.Field)
}

// order renders ORDER BY from the query's sorts, falling back to the
// template default.
func (st *renderState) order(q *queryir.QueryIR) (string, error) {
	sorts := q.Sorts
	if len(sorts) == 0 {
		for _, d := range st.tmpl.DefaultSort() {
			dir := queryir.Asc
			if d.Descending {
				dir = queryir.Desc
			}
			sorts = append(sorts, queryir.Sort{Field: d.Field, Direction: dir})
		}
	}
	if len(sorts) == 0 {
		return "", nil
	}
	parts := make([]string, len(sorts))
	for i, s := range sorts {
		c, err := st.column(s.Field)
		if err != nil {
			return "", err
		}
		parts[i] = c.Expression() + " " + string(s.Direction)
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// dropBlankLines removes lines that are empty after trimming trailing space.
func dropBlankLines(sql string) string {
	lines := strings.Split(sql, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
