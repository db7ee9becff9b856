package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/ir"
)

// ExplainOutput is the payload of a successful explain.
type ExplainOutput struct {
	Domain           string          `json:"domain"`
	Report           string          `json:"report"`
	Expert           string          `json:"expert"`
	Filter           string          `json:"filter"`
	QueryFingerprint string          `json:"query_fingerprint"`
	IR               json.RawMessage `json:"ir"`
}

// RenderText prints a summary and the canonical IR.
func (o *ExplainOutput) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Domain:  %s\n", o.Domain)
	fmt.Fprintf(w, "Report:  %s\n", o.Report)
	fmt.Fprintf(w, "Expert:  %s\n", o.Expert)
	fmt.Fprintf(w, "Filter:  %s\n", o.Filter)
	fmt.Fprintf(w, "IR:\n%s\n", indent(string(o.IR), "  "))
	return nil
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <request...>",
		Short: "Show the extracted query without rendering SQL",
		Long: `Show which domain and report a request resolves to, and the
canonical QueryIR extracted from it (filters, projections, sorts, limit).

Examples:
  nlq explain alle Schäden mit Reserve über 10.000 €
  nlq explain --format json weder Status gleich A noch Sparte gleich KFZ Verträge`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, args, cmd)
		},
	}
}

func runExplain(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	text, err := requestText(args, cmd.InOrStdin())
	if err != nil {
		return f.Fail(err, ErrCodeUsage, ExitCommandError, "")
	}
	eng, err := opts.newEngine("")
	if err != nil {
		return f.Fail(err, ErrCodeConfig, ExitCommandError, "")
	}

	res, err := eng.Explain(text)
	if err != nil {
		return f.Fail(err, ErrCodeInternal, ExitCommandError, engine.TraceID(err))
	}

	out, err := explainOutput(res)
	if err != nil {
		return f.Fail(err, ErrCodeInternal, ExitCommandError, res.TraceID)
	}
	return f.Success(out, res.TraceID)
}

func explainOutput(res *engine.Result) (*ExplainOutput, error) {
	canonical, err := ir.MarshalCanonical(res.IR.Canonical())
	if err != nil {
		return nil, errors.Wrap(err, "canonical IR")
	}
	return &ExplainOutput{
		Domain:           string(res.Domain),
		Report:           res.Report,
		Expert:           res.Expert,
		Filter:           strings.TrimSpace(res.IR.Main().String()),
		QueryFingerprint: res.QueryFingerprint,
		IR:               json.RawMessage(canonical),
	}, nil
}
