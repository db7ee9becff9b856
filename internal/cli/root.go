package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nlq/internal/config"
	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/expert"
	"github.com/roach88/nlq/internal/logger"
	"github.com/roach88/nlq/internal/metrics"
	"github.com/roach88/nlq/internal/querysql"
)

// RootOptions holds global flags and the state PersistentPreRunE sets up
// for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Metrics    bool

	// Config is loaded before any subcommand runs.
	Config *config.Config

	// Collector is set when --metrics is given.
	Collector *metrics.Collector

	// TraceIDs overrides the trace id generator (for testing).
	TraceIDs engine.TraceIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nlq CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nlq",
		Short: "nlq - German report requests to SQL",
		Long: `nlq translates German natural-language report requests from the
insurance back office into parameterized SQL.

Requests are routed to the Schaden (claims) or Cover (contracts) expert,
which selects a report template and fills it from the request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./nlq.toml if present)")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics to stderr on exit")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewTemplatesCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd, opts
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	o.Format = strings.ToLower(o.Format)
	if !isValidFormat(o.Format) {
		bad := o.Format
		o.Format = "text"
		return o.formatter(cmd).Fail(errors.Newf("invalid format %q: must be one of %v", bad, ValidFormats),
			ErrCodeUsage, ExitCommandError, "")
	}
	f := o.formatter(cmd)

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return f.Fail(err, ErrCodeConfig, ExitCommandError, "")
	}
	o.Config = cfg

	level := cfg.Log.Level
	if o.Verbose {
		level = "debug"
	}
	if err := logger.Initialize(cfg.Log.JSON, level); err != nil {
		return f.Fail(err, ErrCodeConfig, ExitCommandError, "")
	}

	if o.Metrics {
		o.Collector = metrics.New()
	}
	return nil
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newEngine builds an engine rendering in dialect (empty: configured dialect).
func (o *RootOptions) newEngine(dialect string) (*engine.Engine, error) {
	d, err := o.dialect(dialect)
	if err != nil {
		return nil, err
	}
	return engine.Build(
		[]expert.Option{
			expert.WithRenderer(querysql.NewRenderer(d)),
			expert.WithMinKeywordHits(o.Config.Compiler.MinKeywordHits),
		},
		o.engineOptions()...,
	)
}

func (o *RootOptions) dialect(name string) (*querysql.Dialect, error) {
	if name == "" {
		name = o.Config.SQL.Dialect
	}
	return querysql.DialectByName(name)
}

func (o *RootOptions) engineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(logger.Base()),
		engine.WithMaxInputRunes(o.Config.Compiler.MaxInputRunes),
		engine.WithTraceIDGenerator(o.TraceIDs),
	}
	if o.Collector != nil {
		opts = append(opts, engine.WithObserver(o.Collector))
	}
	return opts
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, args, stdout, stderr, nil)
}

// execute is Execute with a hook to adjust the options before the run.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, configure func(*RootOptions)) int {
	cmd, opts := newRootCommand()
	if configure != nil {
		configure(opts)
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil && !isReported(err) {
		// Flag and argument errors from cobra itself.
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	if opts.Collector != nil {
		if werr := opts.Collector.WriteText(stderr); werr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", werr)
		}
	}
	_ = logger.Logger.Sync()
	return GetExitCode(err)
}

// isReported reports whether a command already printed err.
func isReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
