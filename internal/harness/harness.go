package harness

import (
	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/expert"
	"github.com/roach88/nlq/internal/querysql"
)

// EngineFor builds an engine over the built-in knowledge that renders in
// the suite's dialect.
func EngineFor(s *Suite, opts ...engine.Option) (*engine.Engine, error) {
	d, err := querysql.DialectByName(s.Dialect)
	if err != nil {
		return nil, err
	}
	return engine.Build([]expert.Option{expert.WithRenderer(querysql.NewRenderer(d))}, opts...)
}

// Run compiles every case of s with eng and checks its expectations.
// Golden snapshots are not compared here; see CheckGolden and RunWithGolden.
func Run(eng *engine.Engine, s *Suite) *SuiteResult {
	out := &SuiteResult{Name: s.Name, Cases: make([]CaseResult, 0, len(s.Cases))}
	for _, c := range s.Cases {
		out.Cases = append(out.Cases, runCase(eng, c))
	}
	out.tally()
	return out
}

func runCase(eng *engine.Engine, c Case) CaseResult {
	r := CaseResult{Name: c.Name, Input: c.Input, Pass: true, golden: c.Expect.Golden}

	res, err := eng.Compile(c.Input)
	if err != nil {
		r.Code = string(errors.CodeOf(err))
		r.Message = err.Error()
		checkFailure(&r, c.Expect)
		return r
	}

	r.Domain = string(res.Domain)
	r.Report = res.Report
	r.SQL = res.Statement.SQL
	r.Params = res.Statement.Params
	checkSuccess(&r, c.Expect, res)
	return r
}
