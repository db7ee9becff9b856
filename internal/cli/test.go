package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nlq/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // suite filter (glob on the file name)
}

// TestResult holds the overall test result.
type TestResult struct {
	Suites []*harness.SuiteResult `json:"suites"`
	Passed int                    `json:"passed"`
	Failed int                    `json:"failed"`
	Total  int                    `json:"total"`
}

// RenderText prints one line per case and a summary.
func (r *TestResult) RenderText(w io.Writer) error {
	if len(r.Suites) == 0 {
		_, err := fmt.Fprintln(w, "No scenarios found.")
		return err
	}
	for _, s := range r.Suites {
		fmt.Fprintf(w, "%s\n", s.Name)
		for _, c := range s.Cases {
			if c.Pass {
				fmt.Fprintf(w, "  ✓ %s\n", c.Name)
				continue
			}
			fmt.Fprintf(w, "  ✗ %s\n", c.Name)
			for _, e := range c.Errors {
				fmt.Fprintf(w, "      %s\n", e)
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	return err
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario suites against the compiler",
		Long: `Run YAML scenario suites against the compiler.

Every case compiles its input and checks the expected domain, report,
SQL fragments, parameters or error code. Cases marked golden are also
compared with their snapshot under golden/<suite>/.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (invalid suite, unreadable directory)

Examples:
  nlq test ./scenarios
  nlq test ./scenarios --filter "cover*"
  nlq test ./scenarios --update
  nlq test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter suites by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	suites, err := harness.LoadSuites(dir, opts.Filter)
	if err != nil {
		return f.Fail(err, ErrCodeSuite, ExitCommandError, "")
	}

	result := &TestResult{Suites: make([]*harness.SuiteResult, 0, len(suites))}
	for _, s := range suites {
		eng, err := harness.EngineFor(s, opts.engineOptions()...)
		if err != nil {
			return f.Fail(err, ErrCodeSuite, ExitCommandError, "")
		}
		res := harness.Run(eng, s)
		if err := harness.CheckGolden(s, res, opts.Update); err != nil {
			return f.Fail(err, ErrCodeSuite, ExitCommandError, "")
		}
		if opts.Update {
			f.VerboseLog("%s: golden files updated", s.Name)
		}
		result.Suites = append(result.Suites, res)
		result.Passed += res.Passed
		result.Failed += res.Failed
	}
	result.Total = result.Passed + result.Failed

	if f.Format == "json" && result.Failed > 0 {
		if err := f.encode(CLIResponse{Status: "error", Data: result}); err != nil {
			return err
		}
	} else if err := f.Success(result, ""); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d cases failed", result.Failed, result.Total))
	}
	return nil
}
