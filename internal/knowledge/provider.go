// Package knowledge supplies the report templates of every business domain.
//
// Each Provider compiles one embedded CUE file. The Registry aggregates all
// providers once per process and is read-only afterwards.
package knowledge

import (
	_ "embed"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/kbcompile"
)

//go:embed cover.cue
var coverSource []byte

//go:embed schaden.cue
var schadenSource []byte

// Provider supplies the templates of one domain.
type Provider interface {
	Domain() catalog.Domain
	Templates() ([]*catalog.ReportTemplate, error)
}

// SourceProvider compiles templates from a CUE knowledge file.
type SourceProvider struct {
	domain   catalog.Domain
	filename string
	source   []byte
}

// NewSourceProvider creates a provider for a knowledge file that must
// declare the given domain.
func NewSourceProvider(domain catalog.Domain, filename string, source []byte) *SourceProvider {
	return &SourceProvider{domain: domain, filename: filename, source: source}
}

// CoverProvider returns the provider for contract reports.
func CoverProvider() *SourceProvider {
	return NewSourceProvider(catalog.DomainCover, "cover.cue", coverSource)
}

// SchadenProvider returns the provider for claims reports.
func SchadenProvider() *SourceProvider {
	return NewSourceProvider(catalog.DomainSchaden, "schaden.cue", schadenSource)
}

func (p *SourceProvider) Domain() catalog.Domain { return p.domain }

// Templates compiles the knowledge file. Each call compiles afresh;
// the Registry calls it once.
func (p *SourceProvider) Templates() ([]*catalog.ReportTemplate, error) {
	k, err := kbcompile.Compile(p.filename, p.source)
	if err != nil {
		return nil, err
	}
	if k.Domain != p.domain {
		return nil, errors.Newf("%s: declares domain %s, want %s", p.filename, k.Domain, p.domain)
	}
	return k.Templates, nil
}

// StaticProvider serves templates built in code, mostly for tests.
type StaticProvider struct {
	domain    catalog.Domain
	templates []*catalog.ReportTemplate
}

// NewStaticProvider creates a provider over fixed templates.
func NewStaticProvider(domain catalog.Domain, templates ...*catalog.ReportTemplate) *StaticProvider {
	return &StaticProvider{domain: domain, templates: templates}
}

func (p *StaticProvider) Domain() catalog.Domain { return p.domain }

func (p *StaticProvider) Templates() ([]*catalog.ReportTemplate, error) {
	for _, t := range p.templates {
		if t.Domain() != p.domain {
			return nil, errors.Newf("template %s belongs to %s, not %s", t.Name(), t.Domain(), p.domain)
		}
	}
	return append([]*catalog.ReportTemplate(nil), p.templates...), nil
}
