package engine

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/expert"
	"github.com/roach88/nlq/internal/ir"
	"github.com/roach88/nlq/internal/knowledge"
	"github.com/roach88/nlq/internal/queryir"
)

const scenario = "zeige VSN und Name, wo Status gleich A, sortiert nach VSN"

// spyExpert records which texts its CanHandle accepted and counts calls
// to the generation methods for texts it never accepted.
type spyExpert struct {
	expert.Expert

	mu         sync.Mutex
	accepted   map[string]bool
	probes     int
	compiles   int
	violations int
}

func (s *spyExpert) CanHandle(text string) bool {
	ok := s.Expert.CanHandle(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes++
	if ok {
		s.accepted[text] = true
	}
	return ok
}

func (s *spyExpert) check(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compiles++
	if !s.accepted[text] {
		s.violations++
	}
}

func (s *spyExpert) Compile(text string) (*expert.Compilation, error) {
	s.check(text)
	return s.Expert.Compile(text)
}

func (s *spyExpert) Extract(text string) (*expert.Compilation, error) {
	s.check(text)
	return s.Expert.Extract(text)
}

func spies(t testing.TB) []*spyExpert {
	t.Helper()
	experts, err := expert.Build(knowledge.MustDefault())
	require.NoError(t, err)
	out := make([]*spyExpert, len(experts))
	for i, e := range experts {
		out[i] = &spyExpert{Expert: e, accepted: make(map[string]bool)}
	}
	return out
}

func engineOver(ss []*spyExpert, opts ...Option) *Engine {
	experts := make([]expert.Expert, len(ss))
	for i, s := range ss {
		experts[i] = s
	}
	return New(experts, opts...)
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithTraceIDGenerator(NewRepeatingGenerator("trace-test"))}, opts...)
	e, err := Build(nil, opts...)
	require.NoError(t, err)
	return e
}

type recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recorder) ObserveCompile(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func TestBuild_ExpertOrder(t *testing.T) {
	e := newEngine(t)
	var names []string
	for _, x := range e.Experts() {
		names = append(names, x.Name())
	}
	assert.Equal(t, []string{"schaden", "cover"}, names)
}

func TestCompile_Scenario(t *testing.T) {
	res, err := newEngine(t).Compile(scenario)
	require.NoError(t, err)

	assert.Equal(t, "trace-test", res.TraceID)
	assert.Equal(t, "cover", res.Expert)
	assert.Equal(t, catalog.DomainCover, res.Domain)
	assert.Equal(t, "Cover Übersicht", res.Report)

	assert.Equal(t, []queryir.Projection{{Field: "vsn"}, {Field: "name"}}, res.IR.Projections)
	assert.Equal(t, "(status eq [A])", res.IR.Main().String())
	assert.Equal(t, []queryir.Sort{{Field: "vsn", Direction: queryir.Asc}}, res.IR.Sorts)
	assert.Zero(t, res.IR.Limit)

	require.NotNil(t, res.Statement)
	assert.True(t, strings.HasPrefix(res.Statement.SQL, `SELECT COALESCE(RTRIM(LTRIM(LAL.LU_VSN)), '') AS "VSN"`))
	assert.Contains(t, res.Statement.SQL, "WHERE (LAL.LU_STA = @p1)")
	assert.Equal(t, []any{"A"}, res.Statement.Params)

	obj, err := res.Statement.Canonical()
	require.NoError(t, err)
	assert.Equal(t, ir.MustFingerprint(ir.DomainStatement, obj), res.Fingerprint)
	assert.Equal(t, ir.MustFingerprint(ir.DomainQuery, res.IR.Canonical()), res.QueryFingerprint)
}

func TestCompile_Unrecognized(t *testing.T) {
	ss := spies(t)
	e := engineOver(ss)

	res, err := e.Compile("hallo welt")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.HasCode(err, errors.CodeUnrecognizedRequest))
	assert.NotEmpty(t, errors.GetAllHints(err))
	assert.NotEmpty(t, TraceID(err))

	for _, s := range ss {
		assert.Equal(t, 1, s.probes, s.Name())
		assert.Zero(t, s.compiles, s.Name())
	}
}

func TestCompile_InputTooLong(t *testing.T) {
	ss := spies(t)
	e := engineOver(ss, WithMaxInputRunes(20))

	_, err := e.Compile(scenario)
	assert.True(t, errors.HasCode(err, errors.CodeInputTooLong))
	for _, s := range ss {
		assert.Zero(t, s.probes, "no expert is probed for oversized input")
	}

	// Runes, not bytes: 20 umlauts fit.
	_, err = e.Compile(strings.Repeat("ä", 20))
	assert.True(t, errors.HasCode(err, errors.CodeUnrecognizedRequest))
}

func TestCompile_ProbeOrder(t *testing.T) {
	ss := spies(t)
	e := engineOver(ss)

	// Both domains recognize this; Schaden is asked first.
	res, err := e.Compile("Schäden zum Vertrag mit VSN 4711")
	require.NoError(t, err)
	assert.Equal(t, catalog.DomainSchaden, res.Domain)
	assert.Equal(t, "(vsn contains [4711])", res.IR.Main().String())

	assert.Equal(t, 1, ss[0].compiles)
	assert.Zero(t, ss[1].probes, "cover is not probed once schaden accepted")
}

func TestCompile_ExpertFailureIsReturned(t *testing.T) {
	rec := &recorder{}
	e := newEngine(t, WithObserver(rec))

	res, err := e.Compile("Verträge mit Mahnstufe 2")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.HasCode(err, errors.CodeUnresolvedField))

	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, catalog.DomainCover, rec.outcomes[0].Domain)
	assert.Equal(t, string(errors.CodeUnresolvedField), rec.outcomes[0].Code)
}

func TestCompile_Idempotent(t *testing.T) {
	e := newEngine(t)
	first, err := e.Compile(scenario)
	require.NoError(t, err)
	second, err := e.Compile(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Statement.SQL, second.Statement.SQL)
	assert.Equal(t, first.Statement.Params, second.Statement.Params)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.QueryFingerprint, second.QueryFingerprint)
}

func TestCompile_Concurrent(t *testing.T) {
	e := newEngine(t)
	want, err := e.Compile(scenario)
	require.NoError(t, err)

	const goroutines = 32
	fps := make(chan string, goroutines)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Compile(scenario)
			if err != nil {
				fps <- err.Error()
				return
			}
			fps <- res.Fingerprint
		}()
	}
	wg.Wait()
	close(fps)

	for fp := range fps {
		assert.Equal(t, want.Fingerprint, fp)
	}
}

func TestExplain(t *testing.T) {
	e := newEngine(t)
	explained, err := e.Explain(scenario)
	require.NoError(t, err)
	assert.Nil(t, explained.Statement)
	assert.Empty(t, explained.Fingerprint)

	compiled, err := e.Compile(scenario)
	require.NoError(t, err)
	assert.Equal(t, compiled.QueryFingerprint, explained.QueryFingerprint)
	assert.Equal(t, compiled.Report, explained.Report)
}

func TestObserver(t *testing.T) {
	rec := &recorder{}
	e := New(nil, WithObserver(rec), WithTraceIDGenerator(NewFixedGenerator("t1", "t2")))

	_, err := e.Compile("hallo welt")
	require.Error(t, err)

	ok := &recorder{}
	e2 := newEngine(t, WithObserver(ok))
	_, err = e2.Compile(scenario)
	require.NoError(t, err)

	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, "t1", rec.outcomes[0].TraceID)
	assert.Equal(t, string(errors.CodeUnrecognizedRequest), rec.outcomes[0].Code)
	assert.Empty(t, rec.outcomes[0].Domain)

	require.Len(t, ok.outcomes, 1)
	assert.Equal(t, OutcomeOK, ok.outcomes[0].Code)
	assert.Equal(t, catalog.DomainCover, ok.outcomes[0].Domain)
	assert.GreaterOrEqual(t, ok.outcomes[0].Duration.Nanoseconds(), int64(0))
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := newEngine(t, WithLogger(zap.New(core)))

	_, err := e.Compile("hallo welt")
	require.Error(t, err)

	assert.Equal(t, "trace-test", TraceID(err))
	assert.Empty(t, TraceID(errors.New("other")))

	failed := logs.FilterMessage("compile failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.Equal(t, "UNRECOGNIZED_REQUEST", fields["code"])
	assert.Equal(t, "trace-test", fields["trace_id"])
	assert.Equal(t, 2, logs.FilterMessage("expert declined").Len())
}

func FuzzCompile(f *testing.F) {
	for _, seed := range []string{
		scenario,
		"hallo welt",
		"",
		"alle Cover ohne VSN, sortiert nach Beginn",
		"Schäden mit Reserve über 10.000 €",
		"die ersten 10 Verträge mit Prämie zwischen 100 und 200",
		"weder Status gleich A noch Sparte gleich KFZ Verträge",
		`Verträge mit Name "unbalanced`,
		"Zahlungen > <= != ,,, oder oder",
	} {
		f.Add(seed)
	}

	ss := spies(f)
	e := engineOver(ss)

	f.Fuzz(func(t *testing.T, text string) {
		res, err := e.Compile(text)
		if err != nil {
			assert.Nil(t, res)
			assert.NotEmpty(t, errors.CodeOf(err), "every failure is typed: %v", err)
		} else {
			require.NotNil(t, res.Statement)
			assert.NotEmpty(t, res.Statement.SQL)
		}
		for _, s := range ss {
			s.mu.Lock()
			v := s.violations
			s.mu.Unlock()
			require.Zero(t, v, "%s compiled a request it did not accept", s.Name())
		}
	})
}
