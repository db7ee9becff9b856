package knowledge

import (
	"sync"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
)

// Registry is the flattened, read-only catalog of all providers' templates.
// Provider order and template order within a provider are preserved.
type Registry struct {
	domains   []catalog.Domain
	templates []*catalog.ReportTemplate
	byDomain  map[catalog.Domain][]*catalog.ReportTemplate
}

// NewRegistry compiles every provider and aggregates the result.
// A domain may be supplied by only one provider.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{byDomain: make(map[catalog.Domain][]*catalog.ReportTemplate)}
	for _, p := range providers {
		d := p.Domain()
		if _, dup := r.byDomain[d]; dup {
			return nil, errors.Newf("domain %s registered twice", d)
		}
		ts, err := p.Templates()
		if err != nil {
			return nil, errors.Wrapf(err, "load %s knowledge", d)
		}
		if len(ts) == 0 {
			return nil, errors.Newf("domain %s has no templates", d)
		}
		r.domains = append(r.domains, d)
		r.byDomain[d] = ts
		r.templates = append(r.templates, ts...)
	}
	return r, nil
}

// Domains returns registered domains in provider order.
func (r *Registry) Domains() []catalog.Domain {
	return append([]catalog.Domain(nil), r.domains...)
}

// Templates returns every template in catalog order.
func (r *Registry) Templates() []*catalog.ReportTemplate {
	return append([]*catalog.ReportTemplate(nil), r.templates...)
}

// ForDomain returns the templates of one domain in declaration order.
func (r *Registry) ForDomain(d catalog.Domain) []*catalog.ReportTemplate {
	return append([]*catalog.ReportTemplate(nil), r.byDomain[d]...)
}

// Template finds a template by its report name.
func (r *Registry) Template(name string) (*catalog.ReportTemplate, bool) {
	for _, t := range r.templates {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the process-wide registry over the built-in providers,
// building it on first use.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = NewRegistry(CoverProvider(), SchadenProvider())
	})
	return defaultRegistry, defaultErr
}

// MustDefault is like Default but panics if the built-in knowledge is broken.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}
