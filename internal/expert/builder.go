package expert

import (
	"slices"
	"strings"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/queryir"
	"github.com/roach88/nlq/internal/querysql"
	"github.com/roach88/nlq/internal/textnorm"
)

// Builder is the keyword-driven Expert over a fixed list of templates.
type Builder struct {
	name      string
	domain    catalog.Domain
	templates []*catalog.ReportTemplate
	renderer  *querysql.Renderer
	minHits   int

	// per template, indexed like templates
	mains     []*lexicon
	columns   []*lexicon
	shortcuts []*lexicon

	// reports of other experts whose column keywords are recognized too
	known []*catalog.ReportTemplate

	// every recognized column keyword, ref into knownKeys; a keyword may
	// name different fields in different reports
	knownColumns *lexicon
	knownKeys    [][]string
}

var _ Expert = (*Builder)(nil)

// New creates an expert over templates, which must all belong to domain.
func New(name string, domain catalog.Domain, templates []*catalog.ReportTemplate, opts ...Option) (*Builder, error) {
	if len(templates) == 0 {
		return nil, errors.Newf("expert %s has no templates", name)
	}
	b := &Builder{
		name:         name,
		domain:       domain,
		templates:    append([]*catalog.ReportTemplate(nil), templates...),
		renderer:     querysql.NewRenderer(nil),
		minHits:      1,
		knownColumns: newLexicon(),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, t := range b.templates {
		if t.Domain() != domain {
			return nil, errors.Newf("template %s belongs to %s, not %s", t.Name(), t.Domain(), domain)
		}
		mains := newLexicon()
		for _, k := range t.Keywords() {
			mains.add(k, 0)
		}
		cols := newLexicon()
		for ci, c := range t.Columns() {
			for _, k := range c.Keywords() {
				cols.add(k, ci)
			}
		}
		shorts := newLexicon()
		for si, s := range t.Shortcuts() {
			for _, k := range s.Keywords {
				shorts.add(k, si)
			}
		}
		b.mains = append(b.mains, mains)
		b.columns = append(b.columns, cols)
		b.shortcuts = append(b.shortcuts, shorts)
	}

	index := make(map[string]int)
	for _, t := range slices.Concat(b.templates, b.known) {
		for _, c := range t.Columns() {
			for _, k := range c.Keywords() {
				ki, ok := index[k]
				if !ok {
					ki = len(b.knownKeys)
					index[k] = ki
					b.knownKeys = append(b.knownKeys, nil)
					b.knownColumns.add(k, ki)
				}
				if !slices.Contains(b.knownKeys[ki], c.Key()) {
					b.knownKeys[ki] = append(b.knownKeys[ki], c.Key())
				}
			}
		}
	}
	return b, nil
}

func (b *Builder) Name() string           { return b.name }
func (b *Builder) Domain() catalog.Domain { return b.domain }

// Templates returns the expert's templates in declaration order.
func (b *Builder) Templates() []*catalog.ReportTemplate {
	return append([]*catalog.ReportTemplate(nil), b.templates...)
}

// CanHandle reports whether any main keyword of any template occurs in text.
// Column keywords alone never activate the domain.
func (b *Builder) CanHandle(text string) bool {
	toks := textnorm.Tokenize(text)
	for _, m := range b.mains {
		if m.hits(toks) > 0 {
			return true
		}
	}
	return false
}

// selectTemplate returns the index of the template with the most distinct
// main keyword hits; the first declared wins a tie.
func (b *Builder) selectTemplate(toks []textnorm.Token) (int, error) {
	best, bestHits := -1, 0
	for i, m := range b.mains {
		if h := m.hits(toks); h > bestHits {
			best, bestHits = i, h
		}
	}
	if best < 0 || bestHits < b.minHits {
		names := make([]string, 0, len(b.templates))
		for _, t := range b.templates {
			names = append(names, t.Name())
		}
		err := errors.NewCompileErrorf(errors.CodeNoMatchingTemplate,
			"no %s report matches (best has %d of %d required keywords)", b.domain, bestHits, b.minHits).
			WithExpert(b.name)
		return 0, errors.WithHintf(err, "nenne den Bericht, z.B. %s", strings.Join(names, ", "))
	}
	return best, nil
}

// Extract builds the QueryIR for text without rendering it.
func (b *Builder) Extract(text string) (*Compilation, error) {
	if !b.CanHandle(text) {
		return nil, errors.NewCompileErrorf(errors.CodeContractViolation,
			"%s expert called for a request it cannot handle", b.name).WithExpert(b.name)
	}
	toks := textnorm.Tokenize(text)
	ti, err := b.selectTemplate(toks)
	if err != nil {
		return nil, err
	}
	tmpl := b.templates[ti]

	q := queryir.New()
	q.Context = queryir.Context(b.domain)
	q.Report = tmpl.Name()

	s := &scanner{b: b, ti: ti, tmpl: tmpl, toks: toks, q: q}
	if err := s.run(); err != nil {
		return nil, b.annotate(err, tmpl)
	}
	return &Compilation{IR: q, Template: tmpl}, nil
}

// Compile extracts and renders text.
func (b *Builder) Compile(text string) (*Compilation, error) {
	c, err := b.Extract(text)
	if err != nil {
		return nil, err
	}
	stmt, err := b.renderer.Render(c.IR, c.Template)
	if err != nil {
		return nil, b.annotate(err, c.Template)
	}
	c.Statement = stmt
	return c, nil
}

// GenerateQuery compiles text and returns only the statement.
func (b *Builder) GenerateQuery(text string) (*querysql.Statement, error) {
	c, err := b.Compile(text)
	if err != nil {
		return nil, err
	}
	return c.Statement, nil
}

// annotate stamps the expert name on typed failures and adds a hint
// naming the report's fields.
func (b *Builder) annotate(err error, tmpl *catalog.ReportTemplate) error {
	var ce *errors.CompileError
	if !errors.As(err, &ce) {
		return err
	}
	ce.WithExpert(b.name)
	switch ce.Code {
	case errors.CodeUnresolvedField:
		return errors.WithHintf(err, "verfügbare Felder in %s: %s", tmpl.Name(), strings.Join(tmpl.FieldNames(), ", "))
	case errors.CodeMalformedValue:
		return errors.WithHint(err, "Zahlen wie 1.234,56 und Datumswerte wie 31.12.2024 angeben")
	}
	return err
}
