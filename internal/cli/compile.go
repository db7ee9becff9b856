package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/errors"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect string // overrides sql.dialect
}

// CompileOutput is the payload of a successful compile.
type CompileOutput struct {
	Domain           string `json:"domain"`
	Report           string `json:"report"`
	Expert           string `json:"expert"`
	SQL              string `json:"sql"`
	Params           []any  `json:"params"`
	Fingerprint      string `json:"fingerprint"`
	QueryFingerprint string `json:"query_fingerprint"`
}

// RenderText prints the SQL followed by the numbered parameters.
func (o *CompileOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "-- %s / %s\n", o.Domain, o.Report)
	fmt.Fprintln(w, o.SQL)
	if len(o.Params) > 0 {
		fmt.Fprintln(w, "-- params")
		for i, p := range o.Params {
			fmt.Fprintf(w, "--   %d: %s\n", i+1, formatParam(p))
		}
	}
	return nil
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request...>",
		Short: "Translate a request to SQL",
		Long: `Translate a German report request to parameterized SQL.

The request may be given as several arguments; they are joined with
spaces. A single "-" reads the request from stdin.

Exit codes:
  0 - SQL produced
  1 - request could not be compiled
  2 - command error (config, flags)

Examples:
  nlq compile zeige VSN und Name, wo Status gleich A, sortiert nach VSN
  nlq compile --dialect postgres "die ersten 5 Verträge mit Makler Müller"
  echo "offene Schäden" | nlq compile - --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect: mssql, sqlite or postgres (default from config)")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	text, err := requestText(args, cmd.InOrStdin())
	if err != nil {
		return f.Fail(err, ErrCodeUsage, ExitCommandError, "")
	}
	eng, err := opts.newEngine(opts.Dialect)
	if err != nil {
		return f.Fail(err, ErrCodeConfig, ExitCommandError, "")
	}

	res, err := eng.Compile(text)
	if err != nil {
		return f.Fail(err, ErrCodeInternal, ExitCommandError, engine.TraceID(err))
	}
	f.VerboseLog("trace %s: %s expert, report %q", res.TraceID, res.Expert, res.Report)

	return f.Success(compileOutput(res), res.TraceID)
}

func compileOutput(res *engine.Result) *CompileOutput {
	params := res.Statement.Params
	if params == nil {
		params = []any{}
	}
	return &CompileOutput{
		Domain:           string(res.Domain),
		Report:           res.Report,
		Expert:           res.Expert,
		SQL:              res.Statement.SQL,
		Params:           params,
		Fingerprint:      res.Fingerprint,
		QueryFingerprint: res.QueryFingerprint,
	}
}

// requestText joins the arguments, or reads stdin for a single "-".
func requestText(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.Wrap(err, "read request from stdin")
		}
		args = []string{string(data)}
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("empty request")
	}
	return text, nil
}
