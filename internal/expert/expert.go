// Package expert holds the domain experts of the compiler.
//
// An Expert owns the report templates of one business domain. CanHandle
// decides from main keywords alone whether a request belongs to the domain;
// Compile extracts a QueryIR from the request and renders it with the best
// matching template. Experts are immutable after construction and safe for
// concurrent use.
package expert

import (
	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/knowledge"
	"github.com/roach88/nlq/internal/queryir"
	"github.com/roach88/nlq/internal/querysql"
)

// Expert is the applicability and generation contract of one domain.
//
// CanHandle is pure. GenerateQuery, Extract and Compile fail with
// CONTRACT_VIOLATION when CanHandle is false for the same text.
type Expert interface {
	Name() string
	Domain() catalog.Domain
	CanHandle(text string) bool
	GenerateQuery(text string) (*querysql.Statement, error)
	Extract(text string) (*Compilation, error)
	Compile(text string) (*Compilation, error)
}

// Compilation is the outcome of one request. Statement is nil when the
// compilation stopped after extraction.
type Compilation struct {
	IR        *queryir.QueryIR
	Template  *catalog.ReportTemplate
	Statement *querysql.Statement
}

// Option configures a Builder.
type Option func(*Builder)

// WithRenderer sets the SQL renderer (default MSSQL).
func WithRenderer(r *querysql.Renderer) Option {
	return func(b *Builder) { b.renderer = r }
}

// WithMinKeywordHits sets how many distinct main keywords a template needs
// to be selected (default 1).
func WithMinKeywordHits(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.minHits = n
		}
	}
}

// WithKnownTemplates makes the column keywords of templates recognizable
// as fields. A request naming a field that the selected report lacks then
// fails with UNRESOLVED_FIELD instead of being skipped as noise.
// NewCover and NewSchaden pass every template of the registry.
func WithKnownTemplates(templates []*catalog.ReportTemplate) Option {
	return func(b *Builder) {
		b.known = append(b.known, templates...)
	}
}

// Variant constructs the expert of one domain from the registry.
type Variant struct {
	Domain catalog.Domain
	New    func(reg *knowledge.Registry, opts ...Option) (*Builder, error)
}

// Variants lists the built-in experts in probe order. Claims requests
// usually mention a contract number, so Schaden is probed before Cover.
var Variants = []Variant{
	{Domain: catalog.DomainSchaden, New: NewSchaden},
	{Domain: catalog.DomainCover, New: NewCover},
}

// Build constructs every built-in expert in probe order.
func Build(reg *knowledge.Registry, opts ...Option) ([]Expert, error) {
	out := make([]Expert, 0, len(Variants))
	for _, v := range Variants {
		e, err := v.New(reg, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "build %s expert", v.Domain)
		}
		out = append(out, e)
	}
	return out, nil
}

// NewCover builds the contract expert.
func NewCover(reg *knowledge.Registry, opts ...Option) (*Builder, error) {
	return New("cover", catalog.DomainCover, reg.ForDomain(catalog.DomainCover), withRegistry(reg, opts)...)
}

// NewSchaden builds the claims expert.
func NewSchaden(reg *knowledge.Registry, opts ...Option) (*Builder, error) {
	return New("schaden", catalog.DomainSchaden, reg.ForDomain(catalog.DomainSchaden), withRegistry(reg, opts)...)
}

func withRegistry(reg *knowledge.Registry, opts []Option) []Option {
	return append([]Option{WithKnownTemplates(reg.Templates())}, opts...)
}
