package harness

import "fmt"

// Suite is one YAML scenario file.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Dialect selects the SQL dialect (default mssql).
	Dialect string `yaml:"dialect,omitempty"`

	Cases []Case `yaml:"cases"`

	// Path is the file the suite was loaded from; golden files live next to it.
	Path string `yaml:"-"`
}

// Case is one request and its expected compilation.
type Case struct {
	Name   string `yaml:"name"`
	Input  string `yaml:"input"`
	Expect Expect `yaml:"expect"`
}

// Expect lists the checks for a case. Empty fields are not checked.
type Expect struct {
	Domain string `yaml:"domain,omitempty"`
	Report string `yaml:"report,omitempty"`

	// Error is the expected error code. When set, the case must fail.
	Error string `yaml:"error,omitempty"`

	SQLContains    []string `yaml:"sql_contains,omitempty"`
	SQLNotContains []string `yaml:"sql_not_contains,omitempty"`

	// Params must equal the bound parameters exactly, in order.
	Params []any `yaml:"params,omitempty"`

	// Filter is the compact rendering of the main filter group,
	// e.g. "(status eq [A])".
	Filter string `yaml:"filter,omitempty"`

	Limit *int `yaml:"limit,omitempty"`

	// Golden snapshots SQL and params.
	Golden bool `yaml:"golden,omitempty"`
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name   string   `json:"name"`
	Input  string   `json:"input"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	Domain string `json:"domain,omitempty"`
	Report string `json:"report,omitempty"`
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// Code is the error code when compilation failed.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	golden bool
}

func (r *CaseResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// SuiteResult collects the case results of one suite.
type SuiteResult struct {
	Name   string       `json:"name"`
	Cases  []CaseResult `json:"cases"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
}

// Pass reports whether every case passed.
func (r *SuiteResult) Pass() bool {
	return r.Failed == 0
}

func (r *SuiteResult) tally() {
	r.Passed, r.Failed = 0, 0
	for _, c := range r.Cases {
		if c.Pass {
			r.Passed++
		} else {
			r.Failed++
		}
	}
}
