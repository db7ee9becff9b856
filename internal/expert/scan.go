package expert

import (
	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/ir"
	"github.com/roach88/nlq/internal/queryir"
	"github.com/roach88/nlq/internal/textnorm"
)

// scanner walks the tokens of one request once, left to right, and fills q.
// Each step consumes at least one token.
type scanner struct {
	b    *Builder
	ti   int
	tmpl *catalog.ReportTemplate
	toks []textnorm.Token
	q    *queryir.QueryIR

	// clauses are AND-ed; a clause with several nodes is an OR group.
	clauses   [][]queryir.Node
	pendingOr bool
	neither   *neitherState

	// order is the next explicit projection position, 0 until "zuerst".
	order      int
	pendingDir *queryir.Direction
}

// neitherState collects the operands of "weder A noch B".
type neitherState struct {
	nodes    []queryir.Node
	sawNoch  bool
	closable bool
}

// fieldResult is what follows a field keyword. pred is nil when the field
// stands alone.
type fieldResult struct {
	pred *queryir.Predicate
	next int
}

func (s *scanner) run() error {
	for i := 0; i < len(s.toks); {
		if s.neither != nil && s.neither.closable && !s.toks[i].IsWord("noch") {
			s.closeNeither()
		}
		next, err := s.step(i)
		if err != nil {
			return err
		}
		i = next
	}
	s.closeNeither()
	s.flush()
	return nil
}

func (s *scanner) step(i int) (int, error) {
	toks := s.toks
	t := toks[i]

	if _, n, ok := sortMarker.match(toks, i); ok {
		return s.parseSort(i + n)
	}
	if ref, n, ok := directions.match(toks, i); ok {
		d := direction(ref)
		s.pendingDir = &d
		return i + n, nil
	}
	if ref, n, ok := limitMark.match(toks, i); ok {
		return s.parseLimit(i+n, limitKind(ref))
	}

	switch {
	case t.IsWord("zuerst"):
		if s.order == 0 {
			s.order = 1
		}
		return i + 1, nil
	case t.IsWord("dann"), t.IsWord("danach"):
		return i + 1, nil
	case t.IsWord("weder"):
		s.closeNeither()
		s.neither = &neitherState{}
		s.pendingOr = false
		return i + 1, nil
	case t.IsWord("noch"):
		if s.neither != nil {
			s.neither.sawNoch = true
		}
		return i + 1, nil
	case t.IsWord("oder"):
		if len(s.clauses) > 0 {
			s.pendingOr = true
		}
		return i + 1, nil
	}

	if ref, n, ok := negations.match(toks, i); ok {
		return s.parseNegated(i+n, negationKind(ref))
	}
	if si, n, ok := s.b.shortcuts[s.ti].match(toks, i); ok {
		return i + n, s.emitShortcut(si, false)
	}
	if ci, n, ok := s.b.columns[s.ti].match(toks, i); ok {
		return s.parseColumn(s.tmpl.Columns()[ci], i+n, nil)
	}
	for _, m := range s.b.mains {
		if _, n, ok := m.match(toks, i); ok {
			return i + n, nil
		}
	}
	col, n, err := s.foreign(i)
	if err != nil {
		return 0, err
	}
	if col != nil {
		return s.parseColumn(col, i+n, nil)
	}
	if ref, n, ok := operators.match(toks, i); ok {
		e := opEntries[ref]
		if e.strict && e.kind != opNull {
			return 0, errors.NewCompileErrorf(errors.CodeMalformedValue,
				"operator %q has no field", t.Raw).WithValue(t.Raw)
		}
		return i + n, nil
	}
	if col := s.patternColumn(t); col != nil {
		p, err := queryir.NewPredicate(col.Key(), queryir.OpEquals, ir.IRString(t.Raw))
		if err != nil {
			return 0, err
		}
		s.emit(p)
	}
	return i + 1, nil
}

func direction(ref int) queryir.Direction {
	if ref == 1 {
		return queryir.Desc
	}
	return queryir.Asc
}

// resolve reads the field keyword at k: a column of the selected report
// first, then any other recognized column keyword. Both results are nil
// when no field keyword starts at k.
func (s *scanner) resolve(k int) (*catalog.ColumnSpec, int, error) {
	if ci, n, ok := s.b.columns[s.ti].match(s.toks, k); ok {
		return s.tmpl.Columns()[ci], n, nil
	}
	return s.foreign(k)
}

// foreign matches a column keyword taken from another report. It resolves
// to the selected report's column with the same key, or fails with
// UNRESOLVED_FIELD.
func (s *scanner) foreign(k int) (*catalog.ColumnSpec, int, error) {
	ki, n, ok := s.b.knownColumns.match(s.toks, k)
	if !ok {
		return nil, 0, nil
	}
	keys := s.b.knownKeys[ki]
	for _, key := range keys {
		if c, ok := s.tmpl.Column(key); ok {
			return c, n, nil
		}
	}
	return nil, 0, s.unresolved(keys[0], s.toks[k].Raw)
}

func (s *scanner) unresolved(key, raw string) error {
	return errors.NewCompileErrorf(errors.CodeUnresolvedField,
		"field %s is not part of report %s", key, s.tmpl.Name()).WithField(key).WithValue(raw)
}

// patternColumn returns the first column whose identifier pattern matches t.
func (s *scanner) patternColumn(t textnorm.Token) *catalog.ColumnSpec {
	if t.Kind == textnorm.KindSymbol || t.Kind == textnorm.KindComma {
		return nil
	}
	for _, c := range s.tmpl.Columns() {
		if p := c.Pattern(); p != nil && p.MatchString(t.Raw) {
			return c
		}
	}
	return nil
}

// parseNegated handles a negation marker. Articles between the marker and
// the field are skipped; a marker that negates nothing is dropped.
func (s *scanner) parseNegated(j int, kind negationKind) (int, error) {
	k := skipArticles(s.toks, j)
	if ci, n, ok := s.b.columns[s.ti].match(s.toks, k); ok {
		return s.parseColumn(s.tmpl.Columns()[ci], k+n, &kind)
	}
	if si, n, ok := s.b.shortcuts[s.ti].match(s.toks, k); ok {
		return k + n, s.emitShortcut(si, true)
	}
	col, n, err := s.foreign(k)
	if err != nil {
		return 0, err
	}
	if col != nil {
		return s.parseColumn(col, k+n, &kind)
	}
	return j, nil
}

func (s *scanner) emitShortcut(si int, negated bool) error {
	sc := s.tmpl.Shortcuts()[si]
	p, err := queryir.NewPredicate(sc.Field, queryir.OpEquals, ir.IRString(sc.Value))
	if err != nil {
		return err
	}
	if negated {
		s.emit(negate(p))
		return nil
	}
	s.emit(p)
	return nil
}

// parseColumn handles a field keyword ending before toks[j].
func (s *scanner) parseColumn(col *catalog.ColumnSpec, j int, neg *negationKind) (int, error) {
	res, err := s.parseField(col, j)
	if err != nil {
		return 0, err
	}
	if res.pred != nil {
		if neg != nil {
			s.emit(negate(res.pred))
		} else {
			s.emit(res.pred)
		}
		return res.next, nil
	}

	switch {
	case neg != nil && *neg == negAbsent:
		s.emit(&queryir.Predicate{Field: col.Key(), Op: queryir.OpIsNull})
	case neg != nil:
		s.q.AddProjection(queryir.Projection{Field: col.Key(), Exclude: true})
		s.pendingOr = false
	case s.neither != nil:
		s.emit(&queryir.Predicate{Field: col.Key(), Op: queryir.OpIsNotNull})
	default:
		p := queryir.Projection{Field: col.Key()}
		if s.order > 0 {
			p.Order = s.order
			s.order++
		}
		s.q.AddProjection(p)
		s.pendingOr = false
	}
	return res.next, nil
}

// negate flips a predicate's operator when it has a complement and wraps
// it in a negated group otherwise.
func negate(p *queryir.Predicate) queryir.Node {
	if op, ok := p.Op.Negate(); ok {
		return &queryir.Predicate{Field: p.Field, Op: op, Value: p.Value}
	}
	g := queryir.NewGroup(queryir.LogicAnd).Add(p)
	g.Negated = true
	return g
}

// parseField reads the operator and value context after a field keyword.
func (s *scanner) parseField(col *catalog.ColumnSpec, j int) (fieldResult, error) {
	bare := fieldResult{next: j}
	toks := s.toks

	if ref, n, ok := operators.match(toks, j); ok {
		// "nicht" right before another field negates that field.
		if n == 1 && toks[j].IsWord("nicht") && s.startsColumn(j+1) {
			return bare, nil
		}
		e := opEntries[ref]
		res, consumed, err := s.parseOperator(col, e, j+n)
		if err != nil {
			return fieldResult{}, err
		}
		if consumed {
			return res, nil
		}
		if e.strict {
			return fieldResult{}, errors.NewCompileErrorf(errors.CodeMalformedValue,
				"operator %q needs a value", toks[j].Raw).WithField(col.Key())
		}
		return bare, nil
	}

	if s.valueAt(j, false) {
		v, next, err := s.value(col, j)
		if err != nil {
			return fieldResult{}, err
		}
		return s.finishScalar(col, defaultOp(col, toks[j]), v, next)
	}
	return bare, nil
}

// parseOperator reads the value part of operator e starting at toks[k].
// consumed is false when no usable value follows.
func (s *scanner) parseOperator(col *catalog.ColumnSpec, e opEntry, k int) (fieldResult, bool, error) {
	toks := s.toks
	switch e.kind {
	case opNull:
		p, err := queryir.NewPredicate(col.Key(), e.op, nil)
		return fieldResult{pred: p, next: k}, true, err

	case opCompare:
		if !s.valueAt(k, e.strict) {
			return fieldResult{}, false, nil
		}
		v, next, err := s.value(col, k)
		if err != nil {
			return fieldResult{}, true, err
		}
		res, err := s.finishScalar(col, e.op, v, next)
		return res, true, err

	case opBetween:
		if !s.valueAt(k, true) {
			return fieldResult{}, false, nil
		}
		lo, next, err := s.value(col, k)
		if err != nil {
			return fieldResult{}, true, err
		}
		if next >= len(toks) || !(toks[next].IsWord("und") || toks[next].IsWord("bis")) || !s.valueAt(next+1, true) {
			return fieldResult{}, true, errors.NewCompileErrorf(errors.CodeMalformedValue,
				"range needs two values").WithField(col.Key()).WithValue(toks[k].Raw)
		}
		hi, next, err := s.value(col, next+1)
		if err != nil {
			return fieldResult{}, true, err
		}
		p, err := queryir.NewPredicate(col.Key(), queryir.OpBetween, ir.IRArray{lo, hi})
		return fieldResult{pred: p, next: next}, true, err

	case opFrom:
		if !s.valueAt(k, false) {
			return fieldResult{}, false, nil
		}
		lo, next, err := s.value(col, k)
		if err != nil {
			return fieldResult{}, true, err
		}
		if next < len(toks) && toks[next].IsWord("bis") && s.valueAt(next+1, true) {
			hi, after, err := s.value(col, next+1)
			if err != nil {
				return fieldResult{}, true, err
			}
			p, err := queryir.NewPredicate(col.Key(), queryir.OpBetween, ir.IRArray{lo, hi})
			return fieldResult{pred: p, next: after}, true, err
		}
		res, err := s.finishScalar(col, defaultOp(col, toks[k]), lo, next)
		return res, true, err

	case opList:
		if !s.valueAt(k, e.strict) {
			return fieldResult{}, false, nil
		}
		first, next, err := s.value(col, k)
		if err != nil {
			return fieldResult{}, true, err
		}
		items, next, err := s.moreValues(col, ir.IRArray{first}, next, true)
		if err != nil {
			return fieldResult{}, true, err
		}
		p, err := queryir.NewPredicate(col.Key(), e.op, items)
		return fieldResult{pred: p, next: next}, true, err
	}
	return fieldResult{}, false, nil
}

// finishScalar builds the predicate for one value, turning equality and
// contains into set membership when more values follow.
func (s *scanner) finishScalar(col *catalog.ColumnSpec, op queryir.Operator, v ir.IRValue, next int) (fieldResult, error) {
	listOp := queryir.Operator("")
	switch op {
	case queryir.OpEquals, queryir.OpContains:
		listOp = queryir.OpIn
	case queryir.OpNotEquals:
		listOp = queryir.OpNotIn
	}
	if listOp != "" {
		items, after, err := s.moreValues(col, ir.IRArray{v}, next, false)
		if err != nil {
			return fieldResult{}, err
		}
		if len(items) > 1 {
			p, err := queryir.NewPredicate(col.Key(), listOp, items)
			return fieldResult{pred: p, next: after}, err
		}
	}
	p, err := queryir.NewPredicate(col.Key(), op, v)
	return fieldResult{pred: p, next: next}, err
}

// moreValues extends items with values separated by "," or "oder"
// (and "und" when withUnd is set).
func (s *scanner) moreValues(col *catalog.ColumnSpec, items ir.IRArray, next int, withUnd bool) (ir.IRArray, int, error) {
	toks := s.toks
	for next < len(toks) {
		sep := toks[next]
		isSep := sep.Kind == textnorm.KindComma || sep.IsWord("oder") || (withUnd && sep.IsWord("und"))
		if !isSep || !s.valueAt(next+1, false) {
			break
		}
		v, after, err := s.value(col, next+1)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
		next = after
	}
	return items, next, nil
}

func defaultOp(col *catalog.ColumnSpec, t textnorm.Token) queryir.Operator {
	if col.IsNumeric() || col.IsTemporal() {
		return queryir.OpEquals
	}
	if p := col.Pattern(); p != nil && p.MatchString(t.Raw) {
		return queryir.OpEquals
	}
	return queryir.OpContains
}

// valueAt reports whether toks[k] can be read as a value. Literals always
// can. A word can unless it is filler or starts a known phrase; loose
// accepts words that are keywords of this domain's reports but not fields.
func (s *scanner) valueAt(k int, loose bool) bool {
	if k >= len(s.toks) {
		return false
	}
	t := s.toks[k]
	if t.IsLiteral() {
		return true
	}
	if t.Kind != textnorm.KindWord || isFiller(t) || textnorm.IsCurrency(t.Norm) {
		return false
	}
	if _, _, ok := vocabulary.match(s.toks, k); ok {
		return false
	}
	if _, _, ok := s.b.knownColumns.match(s.toks, k); ok {
		return false
	}
	if loose {
		return true
	}
	for ti := range s.b.templates {
		if _, _, ok := s.b.mains[ti].match(s.toks, k); ok {
			return false
		}
		if _, _, ok := s.b.shortcuts[ti].match(s.toks, k); ok {
			return false
		}
	}
	return true
}

// value converts toks[k] for col and skips a trailing currency word.
func (s *scanner) value(col *catalog.ColumnSpec, k int) (ir.IRValue, int, error) {
	t := s.toks[k]
	next := k + 1

	switch {
	case col.IsNumeric():
		if n := next; n < len(s.toks) && s.toks[n].Kind == textnorm.KindWord && textnorm.IsCurrency(s.toks[n].Norm) {
			next++
		}
		if v, ok := textnorm.ParseNumber(t.Raw); ok {
			return v, next, nil
		}
		if n, ok := textnorm.NumberWord(t.Norm); ok {
			return ir.IRInt(n), next, nil
		}
		return nil, 0, errors.NewCompileErrorf(errors.CodeMalformedValue,
			"%s expects a number", col.Alias()).WithField(col.Key()).WithValue(t.Raw)
	case col.IsTemporal():
		if d, ok := textnorm.ParseDate(t.Raw); ok {
			return d, next, nil
		}
		return nil, 0, errors.NewCompileErrorf(errors.CodeMalformedValue,
			"%s expects a date", col.Alias()).WithField(col.Key()).WithValue(t.Raw)
	}
	return ir.IRString(t.Raw), next, nil
}

func (s *scanner) startsColumn(k int) bool {
	_, _, ok := s.b.knownColumns.match(s.toks, skipArticles(s.toks, k))
	return ok
}

// parseSort reads one or more fields after a sort marker. A field is only
// taken as a further sort key when no condition follows it.
func (s *scanner) parseSort(j int) (int, error) {
	toks := s.toks
	first := true
	for {
		k := skipArticles(toks, j)
		col, n, err := s.resolve(k)
		if err != nil {
			return 0, err
		}
		if col == nil {
			break
		}
		dir := queryir.Asc
		if first && s.pendingDir != nil {
			dir = *s.pendingDir
			s.pendingDir = nil
		}
		next := k + n
		if ref, dn, ok := directions.match(toks, next); ok {
			dir = direction(ref)
			next += dn
		}
		s.q.AddSort(queryir.Sort{Field: col.Key(), Direction: dir})
		first = false
		j = next

		if j >= len(toks) || !(toks[j].Kind == textnorm.KindComma || toks[j].IsWord("und")) {
			break
		}
		k2 := skipArticles(toks, j+1)
		col2, n2, err := s.resolve(k2)
		if err != nil || col2 == nil || s.hasCondition(k2+n2) {
			break
		}
		j++
	}
	s.pendingOr = false
	return j, nil
}

func (s *scanner) hasCondition(k int) bool {
	if _, _, ok := operators.match(s.toks, k); ok {
		return true
	}
	return s.valueAt(k, false)
}

// parseLimit reads the count after a limit marker.
func (s *scanner) parseLimit(j int, kind limitKind) (int, error) {
	if j < len(s.toks) {
		t := s.toks[j]
		switch t.Kind {
		case textnorm.KindNumber:
			v, _ := textnorm.ParseNumber(t.Raw)
			if n, ok := v.(ir.IRInt); ok && n > 0 {
				s.q.Limit = int(n)
				return j + 1, nil
			}
			return 0, errors.NewCompileErrorf(errors.CodeMalformedValue,
				"limit must be a positive whole number").WithValue(t.Raw)
		case textnorm.KindWord:
			if n, ok := textnorm.NumberWord(t.Norm); ok && n > 0 {
				s.q.Limit = n
				return j + 1, nil
			}
		}
	}
	if kind == limitLoose {
		return j, nil
	}
	raw := ""
	if j < len(s.toks) {
		raw = s.toks[j].Raw
	}
	return 0, errors.NewCompileErrorf(errors.CodeMalformedValue, "limit needs a count").WithValue(raw)
}

// emit records a filter node, honoring a pending "oder" or an open
// "weder ... noch".
func (s *scanner) emit(n queryir.Node) {
	if s.neither != nil {
		s.neither.nodes = append(s.neither.nodes, n)
		if s.neither.sawNoch {
			s.neither.closable = true
		}
		return
	}
	if s.pendingOr && len(s.clauses) > 0 {
		last := len(s.clauses) - 1
		s.clauses[last] = append(s.clauses[last], n)
	} else {
		s.clauses = append(s.clauses, []queryir.Node{n})
	}
	s.pendingOr = false
}

func (s *scanner) closeNeither() {
	if s.neither == nil {
		return
	}
	nodes := s.neither.nodes
	s.neither = nil
	if len(nodes) == 0 {
		return
	}
	g := queryir.NewGroup(queryir.LogicOr)
	g.Negated = true
	for _, n := range nodes {
		g.AddNode(n)
	}
	s.emit(g)
}

// flush moves the collected clauses into the main group.
func (s *scanner) flush() {
	main := s.q.Main()
	for _, c := range s.clauses {
		if len(c) == 1 {
			main.AddNode(c[0])
			continue
		}
		g := queryir.NewGroup(queryir.LogicOr)
		for _, n := range c {
			g.AddNode(n)
		}
		main.AddGroup(g)
	}
}
