package catalog

import (
	"strings"

	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/textnorm"
)

// Domain identifies a business area served by one expert.
type Domain string

const (
	DomainCover   Domain = "COVER"
	DomainSchaden Domain = "SCHADEN"
)

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	return d == DomainCover || d == DomainSchaden
}

// SortKey is a default ordering entry of a template.
type SortKey struct {
	Field      string
	Descending bool
}

// Shortcut maps a phrase to a fixed equality filter,
// e.g. "stornierte" to status = 'S'.
type Shortcut struct {
	Keywords []string
	Field    string
	Value    string
}

// TemplateDef is the declarative input for NewReportTemplate.
type TemplateDef struct {
	Name        string
	Domain      Domain
	Keywords    []string
	Columns     []*ColumnSpec
	SQL         string
	DefaultSort []SortKey
	Shortcuts   []Shortcut
}

// ReportTemplate is a named SQL skeleton with its selectable columns.
type ReportTemplate struct {
	name        string
	domain      Domain
	keywords    []string
	columns     []*ColumnSpec
	byKey       map[string]*ColumnSpec
	sql         string
	segments    []Segment
	defaultSort []SortKey
	shortcuts   []Shortcut
}

// NewReportTemplate validates def and builds a ReportTemplate.
func NewReportTemplate(def TemplateDef) (*ReportTemplate, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, errors.New("template: name is required")
	}
	if !def.Domain.Valid() {
		return nil, errors.Newf("template %s: unknown domain %q", def.Name, def.Domain)
	}
	keywords := textnorm.FoldAll(def.Keywords)
	if len(keywords) == 0 {
		return nil, errors.Newf("template %s: at least one main keyword is required", def.Name)
	}
	if len(def.Columns) == 0 {
		return nil, errors.Newf("template %s: at least one column is required", def.Name)
	}

	t := &ReportTemplate{
		name:     def.Name,
		domain:   def.Domain,
		keywords: keywords,
		columns:  append([]*ColumnSpec(nil), def.Columns...),
		byKey:    make(map[string]*ColumnSpec, len(def.Columns)),
		sql:      def.SQL,
	}
	for _, c := range def.Columns {
		if c == nil {
			return nil, errors.Newf("template %s: nil column", def.Name)
		}
		if _, dup := t.byKey[c.Key()]; dup {
			return nil, errors.Newf("template %s: duplicate column key %q", def.Name, c.Key())
		}
		t.byKey[c.Key()] = c
	}

	segs, err := ParseSkeleton(def.SQL)
	if err != nil {
		return nil, errors.Wrapf(err, "template %s", def.Name)
	}
	if err := validateSkeleton(segs, t.HasColumn); err != nil {
		return nil, errors.Wrapf(err, "template %s", def.Name)
	}
	t.segments = segs

	for _, s := range def.DefaultSort {
		if !t.HasColumn(s.Field) {
			return nil, errors.Newf("template %s: default sort references unknown column %q", def.Name, s.Field)
		}
	}
	t.defaultSort = append([]SortKey(nil), def.DefaultSort...)

	for _, sc := range def.Shortcuts {
		if !t.HasColumn(sc.Field) {
			return nil, errors.Newf("template %s: shortcut references unknown column %q", def.Name, sc.Field)
		}
		folded := textnorm.FoldAll(sc.Keywords)
		if len(folded) == 0 {
			return nil, errors.Newf("template %s: shortcut for %q has no keywords", def.Name, sc.Field)
		}
		t.shortcuts = append(t.shortcuts, Shortcut{Keywords: folded, Field: sc.Field, Value: sc.Value})
	}
	return t, nil
}

// MustReportTemplate is like NewReportTemplate but panics on error.
func MustReportTemplate(def TemplateDef) *ReportTemplate {
	t, err := NewReportTemplate(def)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *ReportTemplate) Name() string   { return t.name }
func (t *ReportTemplate) Domain() Domain { return t.domain }
func (t *ReportTemplate) SQL() string    { return t.sql }

// Keywords returns the folded main keywords in declaration order.
func (t *ReportTemplate) Keywords() []string {
	return append([]string(nil), t.keywords...)
}

// Columns returns the columns in declaration order.
func (t *ReportTemplate) Columns() []*ColumnSpec {
	return append([]*ColumnSpec(nil), t.columns...)
}

// Column looks up a column by semantic key.
func (t *ReportTemplate) Column(key string) (*ColumnSpec, bool) {
	c, ok := t.byKey[key]
	return c, ok
}

// HasColumn reports whether key names a declared column.
func (t *ReportTemplate) HasColumn(key string) bool {
	_, ok := t.byKey[key]
	return ok
}

// Segments returns the parsed skeleton.
func (t *ReportTemplate) Segments() []Segment {
	return append([]Segment(nil), t.segments...)
}

// DefaultSort returns the ordering used when a request names none.
func (t *ReportTemplate) DefaultSort() []SortKey {
	return append([]SortKey(nil), t.defaultSort...)
}

// Shortcuts returns the phrase filters with folded keywords.
func (t *ReportTemplate) Shortcuts() []Shortcut {
	out := make([]Shortcut, len(t.shortcuts))
	for i, s := range t.shortcuts {
		s.Keywords = append([]string(nil), s.Keywords...)
		out[i] = s
	}
	return out
}

// FieldNames returns the column aliases, for user-facing hints.
func (t *ReportTemplate) FieldNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Alias()
	}
	return out
}
