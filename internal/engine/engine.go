package engine

import (
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/roach88/nlq/internal/catalog"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/expert"
	"github.com/roach88/nlq/internal/ir"
	"github.com/roach88/nlq/internal/knowledge"
	"github.com/roach88/nlq/internal/queryir"
	"github.com/roach88/nlq/internal/querysql"
)

// DefaultMaxInputRunes bounds the request length in runes.
const DefaultMaxInputRunes = 2000

// OutcomeOK is the outcome code of a successful compilation.
const OutcomeOK = "OK"

// Outcome describes one finished compilation for observers.
type Outcome struct {
	TraceID  string
	Domain   catalog.Domain // empty when no expert accepted the request
	Code     string         // OutcomeOK or an errors.Code
	Duration time.Duration
}

// Observer is notified once per Compile or Explain call.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveCompile(Outcome)
}

// Result is a successful compilation.
type Result struct {
	TraceID string
	Expert  string
	Domain  catalog.Domain
	Report  string
	IR      *queryir.QueryIR

	// Statement is nil for Explain.
	Statement *querysql.Statement

	// QueryFingerprint hashes the canonical IR; Fingerprint hashes the
	// rendered statement and is empty for Explain.
	QueryFingerprint string
	Fingerprint      string
}

// Engine dispatches requests to the first applicable expert.
type Engine struct {
	experts   []expert.Expert
	logger    *zap.Logger
	observers []Observer
	traceGen  TraceIDGenerator
	maxRunes  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithTraceIDGenerator sets the trace id source (default: UUIDv7).
func WithTraceIDGenerator(g TraceIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.traceGen = g
		}
	}
}

// WithMaxInputRunes sets the request length bound; n <= 0 keeps the default.
func WithMaxInputRunes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRunes = n
		}
	}
}

// New creates an engine over experts, probed in the given order.
// The slice is copied.
func New(experts []expert.Expert, opts ...Option) *Engine {
	e := &Engine{
		experts:  append([]expert.Expert(nil), experts...),
		logger:   zap.NewNop(),
		traceGen: UUIDv7Generator{},
		maxRunes: DefaultMaxInputRunes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build creates an engine over the built-in knowledge and experts.
func Build(expertOpts []expert.Option, opts ...Option) (*Engine, error) {
	reg, err := knowledge.Default()
	if err != nil {
		return nil, errors.Wrap(err, "load knowledge")
	}
	experts, err := expert.Build(reg, expertOpts...)
	if err != nil {
		return nil, err
	}
	return New(experts, opts...), nil
}

// Experts returns the experts in probe order.
func (e *Engine) Experts() []expert.Expert {
	return append([]expert.Expert(nil), e.experts...)
}

// Compile turns text into SQL using the first expert whose CanHandle
// accepts it.
func (e *Engine) Compile(text string) (*Result, error) {
	return e.run(text, true)
}

// Explain extracts the QueryIR for text without rendering SQL.
func (e *Engine) Explain(text string) (*Result, error) {
	return e.run(text, false)
}

func (e *Engine) run(text string, render bool) (*Result, error) {
	start := time.Now()
	traceID := e.traceGen.Generate()
	log := e.logger.With(zap.String("trace_id", traceID))

	res, err := e.dispatch(log, traceID, text, render)

	out := Outcome{TraceID: traceID, Code: OutcomeOK, Duration: time.Since(start)}
	if res != nil {
		out.Domain = res.Domain
	}
	if err != nil {
		out.Code = string(errors.CodeOf(err))
		if out.Code == "" {
			out.Code = "INTERNAL"
		}
		log.Info("compile failed", zap.String("code", out.Code), zap.Error(err))
	} else {
		log.Debug("compiled",
			zap.String("domain", string(res.Domain)),
			zap.String("report", res.Report),
			zap.Duration("duration", out.Duration))
	}
	for _, o := range e.observers {
		o.ObserveCompile(out)
	}
	if err != nil {
		return nil, &tracedError{cause: err, traceID: traceID}
	}
	return res, nil
}

// tracedError attaches the trace id to a failed compilation.
type tracedError struct {
	cause   error
	traceID string
}

func (e *tracedError) Error() string { return e.cause.Error() }
func (e *tracedError) Unwrap() error { return e.cause }

// TraceID returns the trace id of a failed Compile or Explain call, or ""
// if err did not come from an Engine.
func TraceID(err error) string {
	var te *tracedError
	if errors.As(err, &te) {
		return te.traceID
	}
	return ""
}

func (e *Engine) dispatch(log *zap.Logger, traceID, text string, render bool) (*Result, error) {
	if n := utf8.RuneCountInString(text); n > e.maxRunes {
		return nil, errors.NewCompileErrorf(errors.CodeInputTooLong,
			"request has %d characters, limit is %d", n, e.maxRunes)
	}

	for _, x := range e.experts {
		if !x.CanHandle(text) {
			log.Debug("expert declined", zap.String("expert", x.Name()))
			continue
		}
		log.Debug("expert accepted", zap.String("expert", x.Name()))

		var c *expert.Compilation
		var err error
		if render {
			c, err = x.Compile(text)
		} else {
			c, err = x.Extract(text)
		}
		if err != nil {
			return &Result{Domain: x.Domain()}, err
		}
		return e.result(traceID, x, c)
	}

	err := errors.NewCompileError(errors.CodeUnrecognizedRequest, "no domain recognizes this request")
	return nil, errors.WithHint(err, "nenne den Bereich, z.B. Cover (Verträge, Prämien) oder Schaden (Schäden, Zahlungen)")
}

func (e *Engine) result(traceID string, x expert.Expert, c *expert.Compilation) (*Result, error) {
	res := &Result{
		TraceID:   traceID,
		Expert:    x.Name(),
		Domain:    x.Domain(),
		Report:    c.Template.Name(),
		IR:        c.IR,
		Statement: c.Statement,
	}
	fp, err := ir.Fingerprint(ir.DomainQuery, c.IR.Canonical())
	if err != nil {
		return nil, errors.Wrap(err, "fingerprint query")
	}
	res.QueryFingerprint = fp

	if c.Statement != nil {
		obj, err := c.Statement.Canonical()
		if err != nil {
			return nil, errors.Wrap(err, "canonical statement")
		}
		if res.Fingerprint, err = ir.Fingerprint(ir.DomainStatement, obj); err != nil {
			return nil, errors.Wrap(err, "fingerprint statement")
		}
	}
	return res, nil
}
