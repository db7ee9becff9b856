package harness

import (
	"strings"

	"github.com/roach88/nlq/internal/engine"
)

func checkFailure(r *CaseResult, e Expect) {
	if e.Error == "" {
		r.fail("unexpected error %s: %s", r.Code, r.Message)
		return
	}
	if r.Code != e.Error {
		r.fail("error code = %s, want %s (%s)", r.Code, e.Error, r.Message)
	}
}

func checkSuccess(r *CaseResult, e Expect, res *engine.Result) {
	if e.Error != "" {
		r.fail("expected error %s, compiled to: %s", e.Error, r.SQL)
		return
	}
	if e.Domain != "" && r.Domain != e.Domain {
		r.fail("domain = %s, want %s", r.Domain, e.Domain)
	}
	if e.Report != "" && r.Report != e.Report {
		r.fail("report = %q, want %q", r.Report, e.Report)
	}
	for _, frag := range e.SQLContains {
		if !strings.Contains(r.SQL, frag) {
			r.fail("sql does not contain %q:\n%s", frag, r.SQL)
		}
	}
	for _, frag := range e.SQLNotContains {
		if strings.Contains(r.SQL, frag) {
			r.fail("sql contains %q:\n%s", frag, r.SQL)
		}
	}
	if e.Params != nil && !paramsEqual(e.Params, r.Params) {
		r.fail("params = %v, want %v", r.Params, e.Params)
	}
	if e.Filter != "" {
		if got := res.IR.Main().String(); got != e.Filter {
			r.fail("filter = %s, want %s", got, e.Filter)
		}
	}
	if e.Limit != nil && res.IR.Limit != *e.Limit {
		r.fail("limit = %d, want %d", res.IR.Limit, *e.Limit)
	}
}

// paramsEqual compares YAML-decoded expectations with bound parameters.
// YAML integers decode as int, statements bind int64.
func paramsEqual(want, got []any) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if normalizeParam(want[i]) != normalizeParam(got[i]) {
			return false
		}
	}
	return true
}

func normalizeParam(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return v
	}
}
